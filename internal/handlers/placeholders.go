package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-export/internal/middleware"
	"github.com/jwebster45206/story-export/pkg/actions"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/templates"
)

const placeholdersPrefix = "/v1/placeholders/"

// PlaceholdersHandler lists the tokens of a template type:
//
//	GET /v1/placeholders          every known template type
//	GET /v1/placeholders/{type}   tokens of one type, ?engine=Legacy
type PlaceholdersHandler struct {
	log *slog.Logger
}

func NewPlaceholdersHandler(log *slog.Logger) *PlaceholdersHandler {
	return &PlaceholdersHandler{log: log}
}

func (h *PlaceholdersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := middleware.FromContext(r.Context(), h.log)

	parts := pathParts(r.URL.Path, placeholdersPrefix)
	switch len(parts) {
	case 0:
		writeJSON(w, log, http.StatusOK, templates.All())
		return
	case 1:
	default:
		http.NotFound(w, r)
		return
	}

	t := templates.Type(parts[0])
	engine := templates.Engine(r.URL.Query().Get("engine"))
	ph, err := export.PlaceholdersForType(t, engine)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, actions.ErrUnknownTemplateType) {
			status = http.StatusNotFound
		}
		writeError(w, log, status, err.Error())
		return
	}
	writeJSON(w, log, http.StatusOK, ph)
}
