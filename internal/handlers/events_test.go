package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/internal/services/events"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
)

// readEvent reads one SSE event, skipping keepalive comments
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := httptest.NewServer(NewEventsHandler(rdb, testLogger()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/projects/p1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	name, data := readEvent(t, body)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, `"project_id":"p1"`)

	b := events.NewBroadcaster(rdb, testLogger())
	require.NoError(t, b.Announce(ctx, &queuePkg.Job{RequestID: "other", ProjectID: "p2", Status: queuePkg.StatusQueued}, nil))
	require.NoError(t, b.Announce(ctx, &queuePkg.Job{RequestID: "r1", ProjectID: "p1", Status: queuePkg.StatusQueued}, nil))

	name, data = readEvent(t, body)
	assert.Equal(t, string(events.JobQueued), name)
	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "r1", ev.RequestID, "only the subscribed project is streamed")
	assert.Equal(t, queuePkg.StatusQueued, ev.Status)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	h := NewEventsHandler(nil, testLogger())

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/v1/events/projects/p1", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/events/projects/", http.StatusBadRequest},
		{http.MethodGet, "/v1/events/projects/p1/x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
