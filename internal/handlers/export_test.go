package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/storage"
	"github.com/jwebster45206/story-export/pkg/templates"
)

const testDialog = `{
	"id": "d1",
	"npc_id": "bob",
	"nodes": [
		{"id": "start", "type": "NpcText", "text": "Hello", "children": [{"slot": 0, "target": "act"}]},
		{"id": "act", "type": "Action", "action_type": "SetQuestState", "data": {"quest_id": "q1", "quest_state": "Success"}}
	]
}`

func newTestServer(t *testing.T) (*http.ServeMux, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage(os.DirFS("../../data"))
	store.PutNpc(&project.Npc{FlexFieldObject: project.FlexFieldObject{ID: "bob", ProjectID: "p1", Name: "Bob"}})
	store.PutQuest(&project.Quest{FlexFieldObject: project.FlexFieldObject{ID: "q1", ProjectID: "p1", Name: "Main"}})

	log := testLogger()
	exp := export.New(store, log, export.Config{})

	mux := http.NewServeMux()
	mux.Handle("/v1/render", NewRenderHandler(exp, log))
	conditionsHandler := NewConditionsHandler(store, exp, "en", log)
	mux.Handle("/v1/conditions/", conditionsHandler)
	placeholdersHandler := NewPlaceholdersHandler(log)
	mux.Handle("/v1/placeholders", placeholdersHandler)
	mux.Handle("/v1/placeholders/", placeholdersHandler)
	return mux, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func renderBody(nodeID, mode string) string {
	return `{"project_id": "p1", "node_id": "` + nodeID + `", "mode": "` + mode + `", "dialog": ` + testDialog + `}`
}

func TestRenderHandler(t *testing.T) {
	mux, _ := newTestServer(t)

	t.Run("action", func(t *testing.T) {
		w := do(t, mux, http.MethodPost, "/v1/render", renderBody("act", ""))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp RenderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Text, `Quest.SetState("q1", Quest.Success)`)
		assert.Empty(t, resp.Errors)
	})

	t.Run("preview", func(t *testing.T) {
		w := do(t, mux, http.MethodPost, "/v1/render", renderBody("act", ModePreview))
		require.Equal(t, http.StatusOK, w.Code)

		var resp RenderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "SetQuestState (Main, Success)", resp.Preview)
	})

	t.Run("function registers language keys", func(t *testing.T) {
		w := do(t, mux, http.MethodPost, "/v1/render", renderBody("start", ModeFunction))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp RenderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Text, "function DialogFunction_d1_start(this)")
		assert.Contains(t, resp.Text, `Lang("Text_1")`)
		assert.Contains(t, resp.Text, `Quest.SetState("q1", Quest.Success)`)
		assert.Equal(t, []export.LanguageKey{{Key: "Text_1", Text: "Hello"}}, resp.LanguageKeys)
	})

	t.Run("template override", func(t *testing.T) {
		body := `{"project_id": "p1", "node_id": "act", "dialog": ` + testDialog +
			`, "template": {"type": "SetQuestState", "rendering_engine": "Legacy", "code": "{{Quest.Name}}={{QuestState}}"}}`
		w := do(t, mux, http.MethodPost, "/v1/render", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp RenderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Main=Success", resp.Text)
	})

	t.Run("missing quest is reported, not failed", func(t *testing.T) {
		dlg := strings.Replace(testDialog, `"q1"`, `"q9"`, 1)
		body := `{"project_id": "p1", "node_id": "act", "dialog": ` + dlg + `}`
		w := do(t, mux, http.MethodPost, "/v1/render", body)
		require.Equal(t, http.StatusOK, w.Code)

		var resp RenderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Text)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "Quest not found: q9", resp.Errors[0].Message)
	})

	errorCases := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"project": "p1"}`, http.StatusBadRequest},
		{"missing fields", http.MethodPost, `{"project_id": "p1"}`, http.StatusBadRequest},
		{"unknown node", http.MethodPost, renderBody("nope", ""), http.StatusBadRequest},
		{"not an action", http.MethodPost, renderBody("start", ModeAction), http.StatusBadRequest},
		{"unknown mode", http.MethodPost, renderBody("act", "compile"), http.StatusBadRequest},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, mux, tc.method, "/v1/render", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestConditionsHandler(t *testing.T) {
	mux, store := newTestServer(t)

	w := do(t, mux, http.MethodGet, "/v1/conditions/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var set conditions.StoredSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.NotEmpty(t, set.Generate, "bundled default")

	put := `{"generate_rules": [{"type": "Or", "children": [{"type": "MultipleParents"}, {"type": "CurrentNodeType", "value": "Choice"}]}], "prevent_rules": []}`
	w = do(t, mux, http.MethodPut, "/v1/conditions/p1", put)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, len(mustSet(t, store).Generate))

	w = do(t, mux, http.MethodGet, "/v1/conditions/p1/display?lang=de", "")
	require.Equal(t, http.StatusOK, w.Code)
	var disp DisplayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &disp))
	assert.Equal(t, "(MehrereEltern oder AktuellerKnotenTyp(Choice))", disp.Generate)
	assert.Empty(t, disp.Prevent)

	w = do(t, mux, http.MethodGet, "/v1/conditions/p1/display", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &disp))
	assert.Equal(t, "(MultipleParents or CurrentNodeType(Choice))", disp.Generate)

	decide := `{"node_id": "start", "dialog": ` + testDialog + `}`
	w = do(t, mux, http.MethodPost, "/v1/conditions/p1/decide", decide)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d DecideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, DecideResponse{Generate: false, GenerateRule: -1, PreventRule: -1}, d)

	errorCases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"empty group", http.MethodPut, "/v1/conditions/p1", `{"generate_rules": [{"type": "And"}], "prevent_rules": []}`, http.StatusUnprocessableEntity},
		{"unknown kind", http.MethodPut, "/v1/conditions/p1", `{"generate_rules": [{"type": "Sometimes"}], "prevent_rules": []}`, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPut, "/v1/conditions/p1", `{"rules": []}`, http.StatusBadRequest},
		{"no project", http.MethodGet, "/v1/conditions/", "", http.StatusBadRequest},
		{"unknown action", http.MethodGet, "/v1/conditions/p1/explain", "", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/v1/conditions/p1", "", http.StatusMethodNotAllowed},
		{"decide unknown node", http.MethodPost, "/v1/conditions/p1/decide", `{"node_id": "x", "dialog": ` + testDialog + `}`, http.StatusBadRequest},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, mux, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 1, len(mustSet(t, store).Generate), "rejected sets are not saved")
}

func mustSet(t *testing.T, store *storage.MemoryStorage) *conditions.StoredSet {
	t.Helper()
	set, err := store.GetGenerationConditionSet(context.Background(), "p1")
	require.NoError(t, err)
	return set
}

func TestPlaceholdersHandler(t *testing.T) {
	mux, _ := newTestServer(t)

	w := do(t, mux, http.MethodGet, "/v1/placeholders", "")
	require.Equal(t, http.StatusOK, w.Code)
	var types []templates.Type
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Len(t, types, len(templates.All()))

	w = do(t, mux, http.MethodGet, "/v1/placeholders/DialogStep?engine=Legacy", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ph []templates.Placeholder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ph))
	require.Len(t, ph, 2)
	assert.Equal(t, "{{FunctionName}}", ph[0].Token)

	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodGet, "/v1/placeholders/Bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/v1/placeholders/Wait?engine=Mustache", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodPost, "/v1/placeholders/Wait", "").Code)
}
