package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/internal/services/queue"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
)

func newExportsHandler(t *testing.T) (*ExportsHandler, *queue.ExportQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := queue.NewClient(context.Background(), mr.Addr(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewExportQueue(client, time.Hour)
	return NewExportsHandler(q, testLogger()), q
}

func TestExportsHandler(t *testing.T) {
	h, q := newExportsHandler(t)
	ctx := context.Background()

	w := do(t, h, http.MethodPost, "/v1/exports", `{"project_id": "p1", "dialog": `+testDialog+`}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job queuePkg.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, queuePkg.StatusQueued, job.Status)
	assert.Equal(t, queuePkg.RequestTypeDialog, job.Type)
	assert.NotEmpty(t, job.RequestID)

	w = do(t, h, http.MethodPost, "/v1/exports/", `{"project_id": "p1", "object_type": "ObjectNpc", "object_id": "bob"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/v1/exports", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"depth": 2}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/v1/exports/"+job.RequestID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got queuePkg.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, job.RequestID, got.RequestID)

	req, err := q.BlockingDequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, req.Dialog)
	assert.Equal(t, "d1", req.Dialog.ID)
	_, ok := req.Dialog.Node("act")
	assert.True(t, ok, "dequeued dialogs keep their index")

	errorCases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad json", http.MethodPost, "/v1/exports", "{", http.StatusBadRequest},
		{"no project", http.MethodPost, "/v1/exports", `{"dialog": ` + testDialog + `}`, http.StatusBadRequest},
		{"not an object type", http.MethodPost, "/v1/exports", `{"project_id": "p1", "object_type": "NpcText"}`, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/v1/exports/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/v1/exports/x", "", http.StatusMethodNotAllowed},
		{"too deep", http.MethodGet, "/v1/exports/x/y", "", http.StatusNotFound},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}
