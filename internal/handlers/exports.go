package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-export/internal/middleware"
	"github.com/jwebster45206/story-export/internal/services/events"
	"github.com/jwebster45206/story-export/internal/services/queue"
	"github.com/jwebster45206/story-export/pkg/dialog"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
	"github.com/jwebster45206/story-export/pkg/templates"
)

const exportsPrefix = "/v1/exports/"

// EnqueueRequest asks for a dialog export or, without a dialog, an object render
type EnqueueRequest struct {
	ProjectID  string         `json:"project_id"`
	Dialog     *dialog.Graph  `json:"dialog,omitempty"`
	ObjectType templates.Type `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
}

type QueueStatusResponse struct {
	Depth int `json:"depth"`
}

// ExportsHandler queues export jobs for the worker and reports their state:
//
//	POST /v1/exports         enqueue, answers 202 with the queued job
//	GET  /v1/exports         queue depth
//	GET  /v1/exports/{id}    job state and, once completed, its result
type ExportsHandler struct {
	queue       *queue.ExportQueue
	broadcaster *events.Broadcaster
	log         *slog.Logger
}

func NewExportsHandler(exportQueue *queue.ExportQueue, log *slog.Logger) *ExportsHandler {
	return &ExportsHandler{
		queue:       exportQueue,
		broadcaster: events.NewBroadcaster(exportQueue.Client().GetRedisClient(), log),
		log:         log,
	}
}

func (h *ExportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, exportsPrefix)
	switch {
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.handleEnqueue(w, r)
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.handleDepth(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, parts[0])
	case len(parts) <= 1:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *ExportsHandler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.log)

	var body EnqueueRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}

	req := queuePkg.NewObjectRequest(body.ProjectID, body.ObjectType, body.ObjectID)
	if body.Dialog != nil {
		req = queuePkg.NewDialogRequest(body.ProjectID, body.Dialog)
	}
	if err := req.Validate(); err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.queue.Enqueue(r.Context(), req)
	if err != nil {
		log.Error("Failed to enqueue export", "error", err, "project_id", req.ProjectID)
		writeError(w, log, http.StatusInternalServerError, "Failed to enqueue export")
		return
	}
	if err := h.broadcaster.Announce(r.Context(), job, nil); err != nil {
		log.Error("Failed to publish queued event", "error", err)
	}

	log.Info("Export enqueued", "request_id", req.RequestID, "type", req.Type, "project_id", req.ProjectID)
	writeJSON(w, log, http.StatusAccepted, job)
}

func (h *ExportsHandler) handleDepth(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.log)
	depth, err := h.queue.Depth(r.Context())
	if err != nil {
		log.Error("Failed to read queue depth", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Failed to read queue depth")
		return
	}
	writeJSON(w, log, http.StatusOK, QueueStatusResponse{Depth: depth})
}

func (h *ExportsHandler) handleGet(w http.ResponseWriter, r *http.Request, requestID string) {
	log := middleware.FromContext(r.Context(), h.log)
	job, err := h.queue.GetJob(r.Context(), requestID)
	if err != nil {
		log.Error("Failed to load job", "error", err, "request_id", requestID)
		writeError(w, log, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if job == nil {
		writeError(w, log, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, log, http.StatusOK, job)
}
