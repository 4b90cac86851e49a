package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/internal/handlers"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
	"github.com/jwebster45206/story-export/pkg/storage"
)

func newTestUI(t *testing.T, baseURL string) ConsoleUI {
	t.Helper()
	f, err := storage.LoadFixtureFile("../exportctl/testdata/demo.yaml")
	require.NoError(t, err)
	cfg := &ConsoleConfig{APIBaseURL: baseURL, Timeout: time.Second, PollInterval: time.Millisecond}
	ui, err := NewConsoleUI(cfg, http.DefaultClient, f).openDialog("d1")
	require.NoError(t, err)
	return ui
}

func update(t *testing.T, m ConsoleUI, msg tea.Msg) (ConsoleUI, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	return model.(ConsoleUI), cmd
}

func TestOpenDialog(t *testing.T) {
	ui := newTestUI(t, "")
	assert.False(t, ui.showDialogModal)
	assert.Equal(t, "start", ui.currentNode().ID)

	_, err := ui.openDialog("d9")
	assert.EqualError(t, err, `dialog "d9" not found in fixture`)
}

func TestUpdate_NodeNavigation(t *testing.T) {
	ui := newTestUI(t, "")

	ui, cmd := update(t, ui, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, ui.selectedNode)
	assert.True(t, ui.loading)
	assert.NotNil(t, cmd)

	ui, _ = update(t, ui, tea.KeyMsg{Type: tea.KeyDown})
	ui, cmd = update(t, ui, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, ui.selectedNode, "stays on the last node")
	assert.Nil(t, cmd)

	ui.selectedNode = 0
	_, cmd = update(t, ui, tea.KeyMsg{Type: tea.KeyUp})
	assert.Nil(t, cmd)
}

func TestUpdate_TabCyclesMode(t *testing.T) {
	ui := newTestUI(t, "")
	var seen []string
	for range modes {
		seen = append(seen, ui.currentMode())
		ui, _ = update(t, ui, tea.KeyMsg{Type: tea.KeyTab})
	}
	assert.Equal(t, []string{handlers.ModeFunction, handlers.ModeAction, handlers.ModePreview}, seen)
	assert.Equal(t, handlers.ModeFunction, ui.currentMode())
}

func TestRenderCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/render", r.URL.Path)
		var req handlers.RenderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "demo", req.ProjectID)
		assert.Equal(t, "start", req.NodeID)
		assert.Equal(t, handlers.ModeFunction, req.Mode)
		_ = json.NewEncoder(w).Encode(handlers.RenderResponse{Result: export.Result{
			Text:   "function DialogFunction_d1_start(this)",
			Errors: []exporterr.RenderError{{Severity: exporterr.SeverityWarning, Message: "careful"}},
		}})
	}))
	defer srv.Close()

	ui := newTestUI(t, srv.URL)
	msg, ok := ui.renderCurrent()().(renderMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	ui.loading = true
	ui, _ = update(t, ui, msg)
	assert.False(t, ui.loading)
	assert.Equal(t, "function DialogFunction_d1_start(this)", ui.currentText())
	assert.Contains(t, ui.writeCode(80), "warning: start: careful")
}

func TestUpdate_StaleRenderIgnored(t *testing.T) {
	ui := newTestUI(t, "")
	ui.loading = true
	ui, _ = update(t, ui, renderMsg{nodeID: "bye", mode: handlers.ModeFunction, resp: &handlers.RenderResponse{}})
	assert.True(t, ui.loading)
	assert.Nil(t, ui.result)
}

func TestCopy(t *testing.T) {
	var copied string
	orig := copyToClipboard
	defer func() { copyToClipboard = orig }()
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}

	ui := newTestUI(t, "")
	ui, _ = update(t, ui, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, "Nothing to copy", ui.status)

	ui.result = &handlers.RenderResponse{Result: export.Result{Text: "code", Preview: "summary"}}
	ui, _ = update(t, ui, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, "code", copied)
	assert.Equal(t, "Copied to clipboard", ui.status)

	ui.export = &export.DialogExport{
		Functions:    []export.FunctionExport{{Result: export.Result{Text: "f1"}}, {Result: export.Result{Text: "f2"}}},
		LanguageFile: export.Result{Text: "[en]"},
	}
	_, _ = update(t, ui, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, "f1\n\nf2\n\n[en]", copied)

	copyToClipboard = func(string) error { return errors.New("no clipboard") }
	ui.export = nil
	ui, _ = update(t, ui, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, "Copy failed: no clipboard", ui.status)
}

func TestUpdate_JobProgress(t *testing.T) {
	ui := newTestUI(t, "")
	ui.loading = true

	ui, cmd := update(t, ui, jobMsg{job: &queuePkg.Job{RequestID: "r1", Status: queuePkg.StatusProcessing}})
	assert.True(t, ui.loading)
	assert.NotNil(t, cmd, "keeps polling")
	assert.Equal(t, "Export processing...", ui.status)

	exp := &export.DialogExport{DialogID: "d1"}
	done, cmd := update(t, ui, jobMsg{job: &queuePkg.Job{Status: queuePkg.StatusCompleted, WorkerID: "w1", Dialog: exp}})
	assert.Nil(t, cmd)
	assert.False(t, done.loading)
	assert.Same(t, exp, done.export)
	assert.Equal(t, "Exported by w1", done.status)

	failed, _ := update(t, ui, jobMsg{job: &queuePkg.Job{Status: queuePkg.StatusFailed, Error: "boom"}})
	assert.False(t, failed.loading)
	assert.EqualError(t, failed.err, "export failed: boom")
}

func TestGetJob_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"job not found"}`))
	}))
	defer srv.Close()

	_, err := getJob(http.DefaultClient, srv.URL, "nope")
	assert.EqualError(t, err, "API returned status 404: job not found")
}
