package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
)

// Type names a job transition. It doubles as the SSE event name.
type Type string

const (
	JobQueued     Type = "export.queued"
	JobProcessing Type = "export.processing"
	JobCompleted  Type = "export.completed"
	JobFailed     Type = "export.failed"
)

var typeOf = map[queuePkg.Status]Type{
	queuePkg.StatusQueued:     JobQueued,
	queuePkg.StatusProcessing: JobProcessing,
	queuePkg.StatusCompleted:  JobCompleted,
	queuePkg.StatusFailed:     JobFailed,
}

// Event announces that a job reached a new status
type Event struct {
	Type      Type            `json:"type"`
	RequestID string          `json:"request_id"`
	ProjectID string          `json:"project_id"`
	Status    queuePkg.Status `json:"status"`
	WorkerID  string          `json:"worker_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Summary   map[string]any  `json:"summary,omitempty"`
	At        time.Time       `json:"at"`
}

// Channel is the Pub/Sub channel carrying the export events of a project
func Channel(projectID string) string {
	return "export-events:" + projectID
}

// Broadcaster announces job transitions on Redis Pub/Sub
type Broadcaster struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewBroadcaster(rdb *redis.Client, log *slog.Logger) *Broadcaster {
	return &Broadcaster{rdb: rdb, log: log}
}

// Announce publishes the current status of job on its project's channel.
// summary is attached as given, workers pass one on completion.
func (b *Broadcaster) Announce(ctx context.Context, job *queuePkg.Job, summary map[string]any) error {
	t, ok := typeOf[job.Status]
	if !ok {
		return fmt.Errorf("no event for job status %q", job.Status)
	}

	payload, err := json.Marshal(Event{
		Type:      t,
		RequestID: job.RequestID,
		ProjectID: job.ProjectID,
		Status:    job.Status,
		WorkerID:  job.WorkerID,
		Error:     job.Error,
		Summary:   summary,
		At:        job.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", t, err)
	}

	channel := Channel(job.ProjectID)
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", t, job.RequestID, err)
	}
	b.log.Debug("Job event published", "channel", channel, "type", t, "request_id", job.RequestID)
	return nil
}
