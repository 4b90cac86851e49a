package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeDialog exports a whole dialog
	RequestTypeDialog RequestType = "dialog"

	// RequestTypeObject renders the script of one game object
	RequestTypeObject RequestType = "object"
)

// Request is an export job waiting in the queue
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	ProjectID string      `json:"project_id"`

	// Dialog-specific fields
	Dialog *dialog.Graph `json:"dialog,omitempty"`

	// Object-specific fields
	ObjectType templates.Type `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewDialogRequest creates a request exporting g
func NewDialogRequest(projectID string, g *dialog.Graph) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Type:       RequestTypeDialog,
		ProjectID:  projectID,
		Dialog:     g,
		EnqueuedAt: time.Now(),
	}
}

// NewObjectRequest creates a request rendering the object objectID with template type t
func NewObjectRequest(projectID string, t templates.Type, objectID string) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Type:       RequestTypeObject,
		ProjectID:  projectID,
		ObjectType: t,
		ObjectID:   objectID,
		EnqueuedAt: time.Now(),
	}
}

// Validate checks that the request carries what its type needs
func (r *Request) Validate() error {
	if r.ProjectID == "" {
		return errors.New("project_id is required")
	}
	switch r.Type {
	case RequestTypeDialog:
		if r.Dialog == nil {
			return errors.New("dialog is required for dialog requests")
		}
	case RequestTypeObject:
		if cat, ok := templates.CategoryOf(r.ObjectType); !ok || cat != templates.CategoryObject {
			return errors.New("object_type must be an object template type")
		}
	default:
		return errors.New("unknown request type: " + string(r.Type))
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Status is the lifecycle state of a job
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is the stored state of a request, polled by clients
type Job struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	ProjectID string      `json:"project_id"`
	Status    Status      `json:"status"`
	WorkerID  string      `json:"worker_id,omitempty"`

	Dialog *export.DialogExport `json:"dialog,omitempty"`
	Object *export.Result       `json:"object,omitempty"`
	Error  string               `json:"error,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewJob returns the queued job of req
func NewJob(req *Request) *Job {
	return &Job{
		RequestID:  req.RequestID,
		Type:       req.Type,
		ProjectID:  req.ProjectID,
		Status:     StatusQueued,
		EnqueuedAt: req.EnqueuedAt,
		UpdatedAt:  req.EnqueuedAt,
	}
}
