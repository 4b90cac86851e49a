package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBroadcaster_Announce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, Channel("p1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b := NewBroadcaster(rdb, testLogger())
	job := &queuePkg.Job{RequestID: "r1", ProjectID: "p1", Status: queuePkg.StatusQueued}
	require.NoError(t, b.Announce(ctx, job, nil))

	job.Status, job.WorkerID, job.Error = queuePkg.StatusFailed, "w1", "boom"
	require.NoError(t, b.Announce(ctx, job, nil))

	job.Status, job.Error = queuePkg.StatusCompleted, ""
	require.NoError(t, b.Announce(ctx, job, map[string]any{"functions": 2}))

	tests := []struct {
		wantType Type
		check    func(t *testing.T, ev Event)
	}{
		{JobQueued, func(t *testing.T, ev Event) {
			assert.Empty(t, ev.WorkerID)
		}},
		{JobFailed, func(t *testing.T, ev Event) {
			assert.Equal(t, "w1", ev.WorkerID)
			assert.Equal(t, "boom", ev.Error)
		}},
		{JobCompleted, func(t *testing.T, ev Event) {
			assert.Empty(t, ev.Error)
			assert.Equal(t, float64(2), ev.Summary["functions"])
		}},
	}
	for _, tt := range tests {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "export-events:p1", msg.Channel)

		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, tt.wantType, ev.Type)
		assert.Equal(t, "r1", ev.RequestID)
		assert.Equal(t, "p1", ev.ProjectID)
		tt.check(t, ev)
	}
}

func TestBroadcaster_AnnounceErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	b := NewBroadcaster(rdb, testLogger())

	err := b.Announce(context.Background(), &queuePkg.Job{RequestID: "r1", ProjectID: "p1", Status: "paused"}, nil)
	assert.EqualError(t, err, `no event for job status "paused"`)

	mr.Close()
	err = b.Announce(context.Background(), &queuePkg.Job{RequestID: "r1", ProjectID: "p1", Status: queuePkg.StatusCompleted}, nil)
	assert.ErrorContains(t, err, "failed to publish export.completed for r1")
}
