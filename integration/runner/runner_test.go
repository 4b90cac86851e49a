package runner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/internal/handlers"
	"github.com/jwebster45206/story-export/internal/services/queue"
	"github.com/jwebster45206/story-export/internal/storage"
	"github.com/jwebster45206/story-export/internal/worker"
	"github.com/jwebster45206/story-export/pkg/export"
)

// newStack runs the API handlers and a worker against miniredis
func newStack(t *testing.T) *Runner {
	t.Helper()
	mr := miniredis.RunT(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := storage.NewRedisStorage(mr.Addr(), "../../data", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client, err := queue.NewClient(ctx, mr.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewExportQueue(client, time.Hour)

	exporter := export.New(store, logger, export.Config{})
	mux := http.NewServeMux()
	mux.Handle("/v1/render", handlers.NewRenderHandler(exporter, logger))
	exportsHandler := handlers.NewExportsHandler(q, logger)
	mux.Handle("/v1/exports", exportsHandler)
	mux.Handle("/v1/exports/", exportsHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	w := worker.New(q, exporter, logger, "runner-test")
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start()
	}()
	t.Cleanup(func() {
		w.Stop()
		<-done
	})

	r := NewRunner(srv.URL, store)
	r.PollInterval = 50 * time.Millisecond
	r.Timeout = 10 * time.Second
	return r
}

func TestRunSuite_TavernCase(t *testing.T) {
	r := newStack(t)

	jobs, err := LoadTestSuiteWithExpansion("../cases/tavern.yaml", "../cases")
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	result, err := r.RunSuite(context.Background(), jobs[0])
	for _, sr := range result.Results {
		assert.True(t, sr.Success, "%s: %v", sr.StepName, sr.Error)
	}
	require.NoError(t, err)
	assert.Equal(t, "it-tavern", result.ProjectID)
	assert.Len(t, result.Results, len(jobs[0].Suite.Steps))
}

func TestRunSuite_FailingExpectations(t *testing.T) {
	r := newStack(t)
	r.ErrorHandlingMode = ErrorHandlingExit

	job := TestJob{
		Name:     "wrong",
		CaseFile: "../cases/tavern.yaml",
		Suite: TestSuite{
			Name:     "wrong",
			Fixture:  "fixtures/tavern.yaml",
			DialogID: "greet",
			Steps: []TestStep{
				{Name: "bad text", NodeID: "quest", Expectations: Expectations{TextContains: []string{"Teleport"}}},
				{Name: "never runs", NodeID: "quest"},
			},
		},
	}
	result, err := r.RunSuite(context.Background(), job)
	assert.ErrorContains(t, err, `text does not contain "Teleport"`)
	assert.Len(t, result.Results, 1)
}

func TestRunSuite_SeedErrors(t *testing.T) {
	r := NewRunner("http://127.0.0.1:1", nil)
	tests := []struct {
		name  string
		suite TestSuite
		want  string
	}{
		{"no fixture", TestSuite{}, "suite has no fixture"},
		{"missing fixture", TestSuite{Fixture: "nope.yaml"}, "failed to open fixture"},
		{"unknown dialog", TestSuite{Fixture: "fixtures/tavern.yaml", DialogID: "d9"}, `dialog "d9" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RunSuite(context.Background(), TestJob{Suite: tt.suite, CaseFile: "../cases/x.yaml"})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCheckExpectations(t *testing.T) {
	zero, one := 0, 1
	preview := "P"
	out := Outcome{Text: "abc", Preview: "P", Errors: []string{"Quest not found: q"}, Functions: []string{"f"}, LanguageKeys: 1}

	assert.NoError(t, checkExpectations(Expectations{
		TextContains: []string{"b"}, TextNotContains: []string{"z"}, TextRegex: "^a.c$",
		Preview: &preview, ErrorCount: &one, ErrorMessages: []string{"q"},
		Functions: []string{"f"}, LanguageKeys: &one,
	}, out))

	err := checkExpectations(Expectations{TextRegex: "(", ErrorCount: &zero, Functions: []string{}}, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid text_regex")
	assert.Contains(t, err.Error(), "got 1 errors, expected 0")
	assert.Contains(t, err.Error(), "functions are [f], expected []")
}
