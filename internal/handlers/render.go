package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-export/internal/middleware"
	"github.com/jwebster45206/story-export/pkg/actions"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// Render modes
const (
	ModeAction   = "action"
	ModePreview  = "preview"
	ModeFunction = "function"
)

// RenderRequest asks for the code of one node. Template, when set, replaces the
// stored template (used by template editors to preview unsaved changes).
type RenderRequest struct {
	ProjectID string              `json:"project_id"`
	Dialog    *dialog.Graph       `json:"dialog"`
	NodeID    string              `json:"node_id"`
	Mode      string              `json:"mode,omitempty"`
	Template  *templates.Template `json:"template,omitempty"`
}

type RenderResponse struct {
	export.Result
	LanguageKeys []export.LanguageKey `json:"language_keys,omitempty"`
}

type RenderHandler struct {
	exporter *export.Exporter
	log      *slog.Logger
}

func NewRenderHandler(exporter *export.Exporter, log *slog.Logger) *RenderHandler {
	return &RenderHandler{
		exporter: exporter,
		log:      log,
	}
}

func (h *RenderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RenderHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.log)

	var req RenderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProjectID == "" || req.Dialog == nil || req.NodeID == "" {
		writeError(w, log, http.StatusBadRequest, "project_id, dialog and node_id are required")
		return
	}

	pass := h.exporter.NewPass(req.ProjectID)
	res, err := h.render(r.Context(), pass, req)
	if err != nil {
		status := renderStatus(err)
		if status == http.StatusInternalServerError {
			log.Error("Failed to render node", "error", err, "project_id", req.ProjectID, "node_id", req.NodeID)
		}
		writeError(w, log, status, err.Error())
		return
	}

	log.Debug("Rendered node", "pass_id", pass.ID, "node_id", req.NodeID, "mode", req.Mode, "errors", len(res.Errors))
	writeJSON(w, log, http.StatusOK, RenderResponse{Result: res, LanguageKeys: pass.LanguageKeys().All()})
}

func (h *RenderHandler) render(ctx context.Context, pass *export.Pass, req RenderRequest) (export.Result, error) {
	ar := export.ActionRequest{Graph: req.Dialog, NodeID: req.NodeID}
	switch req.Mode {
	case "", ModeAction:
		if req.Template != nil {
			return pass.RenderTemplate(ctx, req.Template, ar)
		}
		return pass.RenderAction(ctx, ar)
	case ModePreview:
		return pass.Preview(ctx, ar)
	case ModeFunction:
		return pass.RenderFunction(ctx, ar)
	}
	return export.Result{}, errUnknownMode
}

var errUnknownMode = errors.New("mode must be one of action, preview, function")

// renderStatus maps render errors to client errors where the request is at fault
func renderStatus(err error) int {
	switch {
	case errors.Is(err, errUnknownMode),
		errors.Is(err, export.ErrNodeNotFound),
		errors.Is(err, actions.ErrUnknownTemplateType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
