package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-export/pkg/queue"
)

const (
	requestsKey = "export-requests"

	// DefaultJobTTL is how long finished jobs stay readable
	DefaultJobTTL = 24 * time.Hour
)

func jobKey(requestID string) string {
	return "export-job:" + requestID
}

// ExportQueue is the global queue of export requests plus the job state clients poll
type ExportQueue struct {
	client *Client
	jobTTL time.Duration
}

func NewExportQueue(client *Client, jobTTL time.Duration) *ExportQueue {
	if jobTTL <= 0 {
		jobTTL = DefaultJobTTL
	}
	return &ExportQueue{
		client: client,
		jobTTL: jobTTL,
	}
}

// Client returns the queue's Redis client wrapper
func (q *ExportQueue) Client() *Client {
	return q.client
}

// Enqueue stores the queued job of req and appends req to the requests queue
func (q *ExportQueue) Enqueue(ctx context.Context, req *queue.Request) (*queue.Job, error) {
	job := queue.NewJob(req)
	if err := q.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	if err := q.Requeue(ctx, req); err != nil {
		return nil, err
	}
	q.client.logger.Debug("Export request enqueued",
		"request_id", req.RequestID,
		"type", req.Type,
		"project_id", req.ProjectID)
	return job, nil
}

// Requeue appends req to the end of the requests queue without touching its job
func (q *ExportQueue) Requeue(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// BlockingDequeue waits up to timeout for the next request. It returns nil, nil
// when the wait times out or ctx ends.
func (q *ExportQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Depth returns the number of requests waiting in the queue
func (q *ExportQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, requestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

// SaveJob writes the job state, refreshing its expiry
func (q *ExportQueue) SaveJob(ctx context.Context, job *queue.Job) error {
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := q.client.rdb.Set(ctx, jobKey(job.RequestID), data, q.jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.RequestID, err)
	}
	return nil
}

// GetJob returns the job of requestID, nil if it is unknown or expired
func (q *ExportQueue) GetJob(ctx context.Context, requestID string) (*queue.Job, error) {
	data, err := q.client.rdb.Get(ctx, jobKey(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load job %s: %w", requestID, err)
	}
	var job queue.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", requestID, err)
	}
	return &job, nil
}
