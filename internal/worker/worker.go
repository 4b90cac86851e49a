package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-export/internal/services/events"
	"github.com/jwebster45206/story-export/internal/services/queue"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
)

// releaseLock deletes the lock only if this worker still owns it
var releaseLock = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func lockKey(projectID string) string {
	return "export-lock:" + projectID
}

// Worker processes export requests from the queue, one project at a time
type Worker struct {
	id          string
	queue       *queue.ExportQueue
	exporter    *export.Exporter
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(exportQueue *queue.ExportQueue, exporter *export.Exporter, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	redisClient := exportQueue.Client().GetRedisClient()

	return &Worker{
		id:          workerID,
		queue:       exportQueue,
		exporter:    exporter,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker id
func (w *Worker) ID() string {
	return w.id
}

// Start processes requests until Stop is called
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeue(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"request_id", req.RequestID,
		"type", req.Type,
		"project_id", req.ProjectID,
	)

	locked, err := w.acquireProjectLock(req.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to acquire project lock: %w", err)
	}
	if !locked {
		// Another worker is exporting this project
		w.log.Info("Project already locked, re-queueing request",
			"request_id", req.RequestID,
			"project_id", req.ProjectID,
		)
		if err := w.queue.Requeue(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseProjectLock(req.ProjectID)
	return w.processRequest(req)
}

// acquireProjectLock reports whether the lock was acquired
func (w *Worker) acquireProjectLock(projectID string) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(projectID), w.id, lockTTL).Result()
}

func (w *Worker) releaseProjectLock(projectID string) {
	// the worker context may already be cancelled on shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseLock.Run(ctx, w.redisClient, []string{lockKey(projectID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release project lock", "error", err, "project_id", projectID)
	}
}

// processRequest runs one export in a fresh pass and stores the outcome on the job
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()

	job, err := w.queue.GetJob(w.ctx, req.RequestID)
	if err != nil {
		return err
	}
	if job == nil {
		// job state expired while queued
		job = queuePkg.NewJob(req)
	}
	job.Status = queuePkg.StatusProcessing
	job.WorkerID = w.id
	if err := w.queue.SaveJob(w.ctx, job); err != nil {
		return err
	}
	if err := w.broadcaster.Announce(w.ctx, job, nil); err != nil {
		// Don't fail the request just because event publishing failed
		w.log.Error("Failed to publish processing event", "error", err)
	}

	summary, err := w.export(req, job)
	if err != nil {
		w.log.Error("Export failed",
			"error", err,
			"request_id", req.RequestID,
			"project_id", req.ProjectID,
		)
		job.Status = queuePkg.StatusFailed
		job.Error = err.Error()
		if saveErr := w.queue.SaveJob(w.ctx, job); saveErr != nil {
			w.log.Error("Failed to save failed job", "error", saveErr)
		}
		if pubErr := w.broadcaster.Announce(w.ctx, job, nil); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process export request: %w", err)
	}

	job.Status = queuePkg.StatusCompleted
	if err := w.queue.SaveJob(w.ctx, job); err != nil {
		return err
	}

	summary["duration_ms"] = time.Since(start).Milliseconds()
	w.log.Info("Export request processed successfully",
		"request_id", req.RequestID,
		"duration_ms", summary["duration_ms"],
	)
	if err := w.broadcaster.Announce(w.ctx, job, summary); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}

// export renders the request into job and returns a summary for the completion event
func (w *Worker) export(req *queuePkg.Request, job *queuePkg.Job) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pass := w.exporter.NewPass(req.ProjectID)

	switch req.Type {
	case queuePkg.RequestTypeDialog:
		exp, err := pass.ExportDialog(w.ctx, req.Dialog)
		if err != nil {
			return nil, err
		}
		job.Dialog = exp
		return map[string]any{
			"dialog_id": exp.DialogID,
			"functions": len(exp.Functions),
			"errors":    exp.Count(exporterr.SeverityError),
			"warnings":  exp.Count(exporterr.SeverityWarning),
		}, nil

	case queuePkg.RequestTypeObject:
		res, err := pass.RenderObject(w.ctx, req.ObjectType, req.ObjectID)
		if err != nil {
			return nil, err
		}
		job.Object = &res
		return map[string]any{
			"object_type": string(req.ObjectType),
			"errors":      len(res.Errors),
		}, nil
	}
	return nil, fmt.Errorf("unknown request type: %s", req.Type)
}
