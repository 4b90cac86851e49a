package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/internal/services/events"
	"github.com/jwebster45206/story-export/internal/services/queue"
	"github.com/jwebster45206/story-export/internal/storage"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/export"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
	pkgstorage "github.com/jwebster45206/story-export/pkg/storage"
	"github.com/jwebster45206/story-export/pkg/templates"
)

const fixture = `
project_id: p1
npcs:
  - id: bob
    name: Bob
quests:
  - id: q1
    name: Main
`

func setupWorker(t *testing.T) (*Worker, *queue.ExportQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := storage.NewRedisStorage(mr.Addr(), "../../data", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f, err := pkgstorage.LoadFixture(strings.NewReader(fixture))
	require.NoError(t, err)
	require.NoError(t, store.Import(ctx, f))

	client, err := queue.NewClient(ctx, mr.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewExportQueue(client, time.Hour)

	exporter := export.New(store, logger, export.Config{})
	return New(q, exporter, logger, "worker-test"), q, mr
}

func testGraph(t *testing.T) *dialog.Graph {
	t.Helper()
	g, err := dialog.New("d1", "bob", []dialog.Node{
		{ID: "start", Type: dialog.NodeTypeNpcText, Text: "Hello", Children: []dialog.Edge{{Target: "act"}}},
		{ID: "act", Type: dialog.NodeTypeAction, ActionType: "SetQuestState", Data: []byte(`{"quest_id": "q1", "quest_state": "Success"}`)},
	})
	require.NoError(t, err)
	return g
}

func TestWorker_DialogRequest(t *testing.T) {
	w, q, mr := setupWorker(t)
	ctx := context.Background()

	req := queuePkg.NewDialogRequest("p1", testGraph(t))
	_, err := q.Enqueue(ctx, req)
	require.NoError(t, err)

	require.NoError(t, w.processNextRequest())

	job, err := q.GetJob(ctx, req.RequestID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queuePkg.StatusCompleted, job.Status)
	assert.Equal(t, "worker-test", job.WorkerID)
	require.NotNil(t, job.Dialog)
	require.Len(t, job.Dialog.Functions, 1)
	assert.Equal(t, "DialogFunction_d1_start", job.Dialog.Functions[0].Name)
	assert.Contains(t, job.Dialog.Functions[0].Text, `Quest.SetState("q1", Quest.Success)`)
	assert.Contains(t, job.Dialog.LanguageFile.Text, "Text_1=Hello")

	assert.False(t, mr.Exists(lockKey("p1")), "lock is released")
}

func TestWorker_ObjectRequest(t *testing.T) {
	w, q, _ := setupWorker(t)
	ctx := context.Background()

	found := queuePkg.NewObjectRequest("p1", templates.ObjectNpc, "bob")
	missing := queuePkg.NewObjectRequest("p1", templates.ObjectNpc, "nobody")
	for _, req := range []*queuePkg.Request{found, missing} {
		_, err := q.Enqueue(ctx, req)
		require.NoError(t, err)
		require.NoError(t, w.processNextRequest())
	}

	job, err := q.GetJob(ctx, found.RequestID)
	require.NoError(t, err)
	assert.Equal(t, queuePkg.StatusCompleted, job.Status)
	require.NotNil(t, job.Object)
	assert.Contains(t, job.Object.Text, "Bob")

	job, err = q.GetJob(ctx, missing.RequestID)
	require.NoError(t, err)
	assert.Equal(t, queuePkg.StatusCompleted, job.Status)
	require.Len(t, job.Object.Errors, 1)
	assert.Equal(t, "NPC not found: nobody", job.Object.Errors[0].Message)
}

func TestWorker_InvalidRequestFails(t *testing.T) {
	w, q, _ := setupWorker(t)
	ctx := context.Background()

	req := &queuePkg.Request{RequestID: "r1", Type: queuePkg.RequestTypeDialog, ProjectID: "p1", EnqueuedAt: time.Now()}
	_, err := q.Enqueue(ctx, req)
	require.NoError(t, err)

	assert.Error(t, w.processNextRequest())

	job, err := q.GetJob(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, queuePkg.StatusFailed, job.Status)
	assert.Equal(t, "dialog is required for dialog requests", job.Error)
}

func TestWorker_LockedProjectIsRequeued(t *testing.T) {
	w, q, mr := setupWorker(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(lockKey("p1"), "other-worker"))

	req := queuePkg.NewObjectRequest("p1", templates.ObjectNpc, "bob")
	_, err := q.Enqueue(ctx, req)
	require.NoError(t, err)

	require.NoError(t, w.processNextRequest())

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
	job, err := q.GetJob(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, queuePkg.StatusQueued, job.Status)

	got, err := mr.Get(lockKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, "other-worker", got, "a foreign lock is left alone")
}

func TestWorker_PublishesEvents(t *testing.T) {
	w, q, _ := setupWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := q.Client().GetRedisClient().Subscribe(ctx, events.Channel("p1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	req := queuePkg.NewDialogRequest("p1", testGraph(t))
	_, err = q.Enqueue(ctx, req)
	require.NoError(t, err)
	require.NoError(t, w.processNextRequest())

	var types []events.Type
	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var ev events.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, req.RequestID, ev.RequestID)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.Type{events.JobProcessing, events.JobCompleted}, types)
}

func TestWorker_DefaultID(t *testing.T) {
	_, q, _ := setupWorker(t)
	w := New(q, nil, slog.Default(), "")
	assert.True(t, strings.HasPrefix(w.ID(), "worker-"))
}
