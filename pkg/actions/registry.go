// Package actions renders action and condition nodes of a dialog.
//
// Every supported template type has a shape in a closed table. Rendering runs in
// three phases: resolve the referenced entities through the pass cache, bind them
// into template data, and substitute the data into the template. Missing entities
// and bad parameters are recorded in the pass collector and yield empty output.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jwebster45206/story-export/pkg/binding"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/exportcache"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/render"
	"github.com/jwebster45206/story-export/pkg/templates"
)

var ErrUnknownTemplateType = errors.New("unknown action template type")

// Env is everything one render needs besides the template
type Env struct {
	ProjectID string
	Graph     *dialog.Graph
	Node      *dialog.Node
	Data      *exportcache.Access
	Errors    *exporterr.Collector
	Hooks     render.Hooks
}

func (e Env) dialogNpcID() string {
	if e.Graph == nil {
		return ""
	}
	return e.Graph.NpcID
}

func (e Env) check() error {
	switch {
	case e.Node == nil:
		return errors.New("render env has no node")
	case e.Data == nil:
		return errors.New("render env has no data access")
	case e.Errors == nil:
		return errors.New("render env has no error collector")
	}
	return nil
}

// Bound is the outcome of resolving and binding one action
type Bound struct {
	Data    map[string]any
	Preview string
}

// Registry maps action and condition template types to their renderers
type Registry struct {
	shapes map[templates.Type]shape
	logger *slog.Logger
}

// NewRegistry returns the registry of every supported action and condition type
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{shapes: shapes, logger: logger}
}

// Supports reports whether t is rendered by the registry
func (r *Registry) Supports(t templates.Type) bool {
	_, ok := r.shapes[t]
	return ok
}

// Types returns every supported type, sorted
func (r *Registry) Types() []templates.Type {
	out := make([]templates.Type, 0, len(r.shapes))
	for t := range r.shapes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Bind resolves and binds the node for template type t. It returns nil when a
// reference could not be resolved; the reasons are in env.Errors.
func (r *Registry) Bind(ctx context.Context, t templates.Type, env Env) (*Bound, error) {
	s, ok := r.shapes[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplateType, t)
	}
	if err := env.check(); err != nil {
		return nil, err
	}

	p, err := DecodeParams(env.Node.Data)
	if err != nil {
		env.Errors.Add(exporterr.KindInvalidActionData, env.Node.ID, err.Error())
		return nil, nil
	}

	res, ok, err := resolve(ctx, s, p, env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s on node %s: %w", t, env.Node.ID, err)
	}
	if !ok {
		r.logger.Debug("action references unresolved", "type", string(t), "node_id", env.Node.ID)
		return nil, nil
	}

	cfg, err := env.Data.ProjectConfig(ctx, env.ProjectID)
	if err != nil {
		return nil, err
	}

	in := bindInput{shape: s, params: p, resolved: res, nodeID: env.Node.ID}
	if env.Graph != nil {
		in.functionName = env.Graph.FunctionName(env.Node)
		if s.with(extraDirectContinue) {
			in.directContinue = r.directContinue(env, t)
		}
	}

	data, args := bind(binding.New(cfg), in)
	return &Bound{Data: data, Preview: previewText(string(t), args)}, nil
}

// directContinue returns the function name of the node's direct continue child.
// A wait whose only child is the direct continue child gets a warning.
func (r *Registry) directContinue(env Env, t templates.Type) string {
	child, ok := env.Graph.DirectContinue(env.Node.ID)
	if !ok {
		return ""
	}
	if t == templates.Wait && len(env.Graph.NextSteps(env.Node.ID)) == 0 {
		env.Errors.AddWarning(exporterr.KindWaitOnlyDirectContinue, env.Node.ID)
	}
	return env.Graph.FunctionName(child)
}

// Render resolves, binds and substitutes one action or condition node. Recoverable
// problems leave the output empty and are recorded in env.Errors; the returned error
// is reserved for store failures and configuration errors, including those hit by
// a hook while rendering a following step.
func (r *Registry) Render(ctx context.Context, tmpl *templates.Template, env Env) (string, error) {
	if tmpl == nil {
		return "", errors.New("template is nil")
	}
	b, err := r.Bind(ctx, tmpl.Type, env)
	if err != nil || b == nil {
		return "", err
	}

	out, err := render.Substitute(ctx, tmpl, b.Data, env.Hooks)
	if err != nil {
		if errors.Is(err, render.ErrUnknownEngine) || ctx.Err() != nil {
			return "", err
		}
		if hookErr := render.HookFailure(err); hookErr != nil {
			return "", hookErr
		}
		r.logger.Debug("template substitution failed", "type", string(tmpl.Type), "error", err)
		env.Errors.Add(exporterr.KindTemplateInvalid, string(tmpl.Type), err.Error())
		return "", nil
	}
	return out, nil
}

// Preview returns the human readable summary of a node, e.g. SetQuestState (MainQuest, InProgress).
// It is empty when references could not be resolved.
func (r *Registry) Preview(ctx context.Context, t templates.Type, env Env) (string, error) {
	b, err := r.Bind(ctx, t, env)
	if err != nil || b == nil {
		return "", err
	}
	return b.Preview, nil
}
