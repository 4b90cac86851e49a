package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-export/internal/middleware"
	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/storage"
)

const conditionsPrefix = "/v1/conditions/"

type DisplayResponse struct {
	Language string `json:"language"`
	Generate string `json:"generate"`
	Prevent  string `json:"prevent"`
}

type DecideRequest struct {
	Dialog *dialog.Graph `json:"dialog"`
	NodeID string        `json:"node_id"`
}

type DecideResponse struct {
	Generate     bool `json:"generate"`
	GenerateRule int  `json:"generate_rule"`
	PreventRule  int  `json:"prevent_rule"`
}

// ConditionsHandler serves a project's generation condition set:
//
//	GET  /v1/conditions/{project}          stored set, or the bundled default
//	PUT  /v1/conditions/{project}          validate and replace
//	GET  /v1/conditions/{project}/display  display strings, ?lang=de
//	POST /v1/conditions/{project}/decide   function generation decision for a node
type ConditionsHandler struct {
	store           storage.Store
	exporter        *export.Exporter
	defaultLanguage string
	log             *slog.Logger
}

func NewConditionsHandler(store storage.Store, exporter *export.Exporter, defaultLanguage string, log *slog.Logger) *ConditionsHandler {
	return &ConditionsHandler{
		store:           store,
		exporter:        exporter,
		defaultLanguage: defaultLanguage,
		log:             log,
	}
}

func (h *ConditionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, conditionsPrefix)
	if len(parts) == 0 || len(parts) > 2 {
		http.Error(w, "project id is required in URL path (e.g., /v1/conditions/p1)", http.StatusBadRequest)
		return
	}
	projectID := parts[0]

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, projectID)
	case action == "" && r.Method == http.MethodPut:
		h.handlePut(w, r, projectID)
	case action == "display" && r.Method == http.MethodGet:
		h.handleDisplay(w, r, projectID)
	case action == "decide" && r.Method == http.MethodPost:
		h.handleDecide(w, r, projectID)
	case action == "" || action == "display" || action == "decide":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *ConditionsHandler) handleGet(w http.ResponseWriter, r *http.Request, projectID string) {
	log := middleware.FromContext(r.Context(), h.log)
	set, err := h.store.GetGenerationConditionSet(r.Context(), projectID)
	if err != nil {
		log.Error("Failed to get generation conditions", "error", err, "project_id", projectID)
		writeError(w, log, http.StatusInternalServerError, "Failed to retrieve generation conditions")
		return
	}
	if set == nil {
		set = &conditions.StoredSet{ProjectID: projectID, Generate: []conditions.Element{}, Prevent: []conditions.Element{}}
	}
	writeJSON(w, log, http.StatusOK, set)
}

func (h *ConditionsHandler) handlePut(w http.ResponseWriter, r *http.Request, projectID string) {
	log := middleware.FromContext(r.Context(), h.log)

	var set conditions.StoredSet
	if err := decodeBody(r, &set); err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	if err := conditions.ValidateSet(&set); err != nil {
		writeError(w, log, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.store.SaveGenerationConditionSet(r.Context(), projectID, &set); err != nil {
		log.Error("Failed to save generation conditions", "error", err, "project_id", projectID)
		writeError(w, log, http.StatusInternalServerError, "Failed to save generation conditions")
		return
	}
	log.Info("Saved generation conditions", "project_id", projectID, "generate_rules", len(set.Generate), "prevent_rules", len(set.Prevent))
	writeJSON(w, log, http.StatusOK, &set)
}

func (h *ConditionsHandler) handleDisplay(w http.ResponseWriter, r *http.Request, projectID string) {
	log := middleware.FromContext(r.Context(), h.log)

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.defaultLanguage
	}
	tag := conditions.ParseLanguage(lang)

	gen, prev, err := h.exporter.NewPass(projectID).ConditionDisplay(r.Context(), tag)
	if err != nil {
		log.Error("Failed to display generation conditions", "error", err, "project_id", projectID)
		writeError(w, log, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, log, http.StatusOK, DisplayResponse{Language: tag.String(), Generate: gen, Prevent: prev})
}

func (h *ConditionsHandler) handleDecide(w http.ResponseWriter, r *http.Request, projectID string) {
	log := middleware.FromContext(r.Context(), h.log)

	var req DecideRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	if req.Dialog == nil || req.NodeID == "" {
		writeError(w, log, http.StatusBadRequest, "dialog and node_id are required")
		return
	}
	if _, ok := req.Dialog.Node(req.NodeID); !ok {
		writeError(w, log, http.StatusBadRequest, export.ErrNodeNotFound.Error()+": "+req.NodeID)
		return
	}

	d, err := h.exporter.NewPass(projectID).Decide(r.Context(), req.Dialog, req.NodeID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, conditions.ErrUnknownConditionType) || errors.Is(err, conditions.ErrEmptyGroup) || errors.Is(err, conditions.ErrMissingValue) {
			status = http.StatusUnprocessableEntity
		}
		log.Error("Failed to decide function generation", "error", err, "project_id", projectID)
		writeError(w, log, status, err.Error())
		return
	}
	writeJSON(w, log, http.StatusOK, DecideResponse{Generate: d.Generate, GenerateRule: d.GenerateRule, PreventRule: d.PreventRule})
}
