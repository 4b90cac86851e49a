// Package export is the entry point of the dialog export pipeline.
//
// An Exporter is long lived and holds the store and renderer registry. Each export
// pass gets its own Pass, which owns the lookup cache and the language keys
// generated while rendering. A Pass must not be shared between projects.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-export/pkg/actions"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/exportcache"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/render"
	"github.com/jwebster45206/story-export/pkg/storage"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// ErrNodeNotFound is returned when a request names a node missing from its dialog
var ErrNodeNotFound = errors.New("node not found")

// DefaultMaxStepDepth bounds how many steps are rendered inline after one node
const DefaultMaxStepDepth = 16

// Config tunes an Exporter
type Config struct {
	MaxStepDepth int
}

// Exporter creates export passes over one store
type Exporter struct {
	store    storage.Store
	registry *actions.Registry
	logger   *slog.Logger
	maxDepth int
}

// New creates an exporter; a nil logger falls back to slog.Default()
func New(store storage.Store, logger *slog.Logger, cfg Config) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxStepDepth <= 0 {
		cfg.MaxStepDepth = DefaultMaxStepDepth
	}
	return &Exporter{
		store:    store,
		registry: actions.NewRegistry(logger),
		logger:   logger,
		maxDepth: cfg.MaxStepDepth,
	}
}

// Registry returns the action renderer registry
func (e *Exporter) Registry() *actions.Registry {
	return e.registry
}

// Pass is one export operation over a project. Lookups are cached for its lifetime.
type Pass struct {
	ID        string
	projectID string
	exporter  *Exporter
	data      *exportcache.Access
	keys      *LanguageKeys
	refs      *functionRefs
	logger    *slog.Logger
}

// NewPass starts an export pass with an empty cache
func (e *Exporter) NewPass(projectID string) *Pass {
	id := uuid.NewString()
	logger := e.logger.With("pass_id", id, "project_id", projectID)
	return &Pass{
		ID:        id,
		projectID: projectID,
		exporter:  e,
		data:      exportcache.New(e.store, logger),
		keys:      NewLanguageKeys(),
		refs:      newFunctionRefs(),
		logger:    logger,
	}
}

// ProjectID returns the project the pass exports
func (p *Pass) ProjectID() string {
	return p.projectID
}

// Data returns the pass cache
func (p *Pass) Data() *exportcache.Access {
	return p.data
}

// LanguageKeys returns the keys registered so far in the pass
func (p *Pass) LanguageKeys() *LanguageKeys {
	return p.keys
}

// ActionRequest identifies the node to render
type ActionRequest struct {
	Graph  *dialog.Graph
	NodeID string
}

func (r ActionRequest) node() (*dialog.Node, error) {
	if r.Graph == nil {
		return nil, errors.New("no dialog given")
	}
	n, ok := r.Graph.Node(r.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q in dialog %q", ErrNodeNotFound, r.NodeID, r.Graph.ID)
	}
	return n, nil
}

// Result is rendered text plus every problem found while rendering it
type Result struct {
	Text    string                  `json:"text"`
	Preview string                  `json:"preview,omitempty"`
	Errors  []exporterr.RenderError `json:"errors"`
}

func result(text string, c *exporterr.Collector) Result {
	errs := c.All()
	if errs == nil {
		errs = []exporterr.RenderError{}
	}
	return Result{Text: text, Errors: errs}
}

// Template resolves the template a node of type t uses in the given dialog.
// Templates customized for the dialog's NPC take precedence.
func (p *Pass) Template(ctx context.Context, g *dialog.Graph, t templates.Type) (*templates.Template, error) {
	objectID := ""
	if g != nil {
		objectID = g.NpcID
	}
	return p.data.Template(ctx, p.projectID, objectID, t)
}

// RenderAction renders an action or condition node with its stored template
func (p *Pass) RenderAction(ctx context.Context, req ActionRequest) (Result, error) {
	node, err := req.node()
	if err != nil {
		return Result{}, err
	}
	t := templates.Type(node.ActionType)
	if !p.exporter.registry.Supports(t) {
		return Result{}, fmt.Errorf("%w: %q on node %s", actions.ErrUnknownTemplateType, node.ActionType, node.ID)
	}
	tmpl, err := p.Template(ctx, req.Graph, t)
	if err != nil {
		return Result{}, err
	}
	return p.RenderTemplate(ctx, tmpl, req)
}

// RenderTemplate renders a node with the given template instead of the stored one
func (p *Pass) RenderTemplate(ctx context.Context, tmpl *templates.Template, req ActionRequest) (Result, error) {
	node, err := req.node()
	if err != nil {
		return Result{}, err
	}
	c := exporterr.New()
	text, err := p.exporter.registry.Render(ctx, tmpl, p.env(req.Graph, node, c, p.newStepper(req.Graph, node, c, nil)))
	if err != nil {
		return Result{}, err
	}
	p.logger.Debug("rendered action", "node_id", node.ID, "type", string(tmpl.Type), "errors", c.Len())
	return result(text, c), nil
}

// Preview returns the human readable summary of an action node
func (p *Pass) Preview(ctx context.Context, req ActionRequest) (Result, error) {
	node, err := req.node()
	if err != nil {
		return Result{}, err
	}
	c := exporterr.New()
	text, err := p.exporter.registry.Preview(ctx, templates.Type(node.ActionType), p.env(req.Graph, node, c, nil))
	if err != nil {
		return Result{}, err
	}
	r := result("", c)
	r.Preview = text
	return r, nil
}

func (p *Pass) env(g *dialog.Graph, node *dialog.Node, c *exporterr.Collector, st *stepper) actions.Env {
	return actions.Env{
		ProjectID: p.projectID,
		Graph:     g,
		Node:      node,
		Data:      p.data,
		Errors:    c,
		Hooks:     p.hooks(c, st),
	}
}

// hooks wires language keys and, when st is set, inline next steps
func (p *Pass) hooks(c *exporterr.Collector, st *stepper) render.Hooks {
	h := render.Hooks{LanguageKeys: &keyHook{pass: p, errors: c}}
	if st != nil {
		h.Steps = st
	}
	return h
}
