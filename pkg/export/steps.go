package export

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/story-export/pkg/binding"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/render"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// stepper renders the normal next steps of a node for the nextstep hook.
// trail holds the nodes rendered inline above this one.
type stepper struct {
	pass   *Pass
	graph  *dialog.Graph
	node   *dialog.Node
	errors *exporterr.Collector
	trail  []string
	used   bool
}

func (p *Pass) newStepper(g *dialog.Graph, node *dialog.Node, c *exporterr.Collector, trail []string) *stepper {
	return &stepper{pass: p, graph: g, node: node, errors: c, trail: trail}
}

// RenderNextStep renders every next step reached through the normal slot. A step
// that gets its own function, or that is already being rendered above, becomes a call.
func (s *stepper) RenderNextStep(ctx context.Context) (string, error) {
	s.used = true
	if s.graph == nil {
		return "", nil
	}
	next := s.graph.NextSteps(s.node.ID)
	if len(next) == 0 {
		return "", nil
	}
	if len(s.trail) >= s.pass.exporter.maxDepth {
		s.errors.Add(exporterr.KindStepRenderFailed, s.node.ID, "maximum step depth reached")
		return "", nil
	}

	// full slice expression so siblings never share the backing array
	trail := append(s.trail[:len(s.trail):len(s.trail)], s.node.ID)
	parts := make([]string, 0, len(next))
	for _, n := range next {
		code, err := s.pass.step(ctx, s.graph, n, s.errors, trail)
		if err != nil {
			return "", err
		}
		if code != "" {
			parts = append(parts, code)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// step renders n inline, or as a call when it is on the trail or gets its own function
func (p *Pass) step(ctx context.Context, g *dialog.Graph, n *dialog.Node, c *exporterr.Collector, trail []string) (string, error) {
	if slices.Contains(trail, n.ID) {
		return p.call(ctx, g, n, c)
	}
	own, err := p.DecideFunctionGeneration(ctx, g, n.ID)
	if err != nil {
		return "", err
	}
	if own {
		return p.call(ctx, g, n, c)
	}
	return p.renderChain(ctx, g, n, c, trail)
}

// call renders the DialogStep template calling the function of n
func (p *Pass) call(ctx context.Context, g *dialog.Graph, n *dialog.Node, c *exporterr.Collector) (string, error) {
	p.refs.add(g.ID, n.ID)
	tmpl, err := p.Template(ctx, g, templates.DialogStep)
	if err != nil {
		return "", err
	}
	data := map[string]any{
		"FunctionName": g.FunctionName(n),
		"NodeID":       n.ID,
	}
	return p.substitute(ctx, tmpl, data, c, nil)
}

// renderChain renders n followed by its next steps, unless its template placed them itself
func (p *Pass) renderChain(ctx context.Context, g *dialog.Graph, n *dialog.Node, c *exporterr.Collector, trail []string) (string, error) {
	st := p.newStepper(g, n, c, trail)
	code, err := p.renderNode(ctx, g, n, c, st)
	if err != nil {
		return "", err
	}
	if st.used || n.Type == dialog.NodeTypeChoice || n.Type == dialog.NodeTypeCondition {
		return code, nil
	}
	next, err := st.RenderNextStep(ctx)
	if err != nil {
		return "", err
	}
	return joinLines(code, next), nil
}

type choice struct {
	Text          string
	UnescapedText string
	FunctionName  string
	NodeID        string
}

// renderNode renders the code of a single node with the template of its type.
// Nodes without a template of their own, such as references, render nothing.
func (p *Pass) renderNode(ctx context.Context, g *dialog.Graph, n *dialog.Node, c *exporterr.Collector, st *stepper) (string, error) {
	if n.Type == dialog.NodeTypeCondition {
		return p.renderCondition(ctx, g, n, c, st.trail)
	}
	if n.ActionType != "" {
		t := templates.Type(n.ActionType)
		if !p.exporter.registry.Supports(t) {
			c.Add(exporterr.KindStepRenderFailed, n.ID, "unsupported action type "+n.ActionType)
			return "", nil
		}
		tmpl, err := p.Template(ctx, g, t)
		if err != nil {
			return "", err
		}
		out, err := p.exporter.registry.Render(ctx, tmpl, p.env(g, n, c, st))
		return strings.TrimRight(out, "\n"), err
	}

	var t templates.Type
	switch n.Type {
	case dialog.NodeTypeNpcText:
		t = templates.NpcText
	case dialog.NodeTypePlayerText:
		t = templates.PlayerText
	case dialog.NodeTypeChoice:
		t = templates.Choice
	default:
		return "", nil
	}

	tmpl, err := p.Template(ctx, g, t)
	if err != nil {
		return "", err
	}
	cfg, err := p.data.ProjectConfig(ctx, p.projectID)
	if err != nil {
		return "", err
	}
	b := binding.New(cfg)

	data := map[string]any{
		"FunctionName":  g.FunctionName(n),
		"NodeID":        n.ID,
		"Text":          b.Escape(n.Text),
		"UnescapedText": n.Text,
	}
	if n.Type == dialog.NodeTypeChoice {
		var choices []choice
		for _, opt := range g.NextSteps(n.ID) {
			p.refs.add(g.ID, opt.ID)
			choices = append(choices, choice{
				Text:          b.Escape(opt.Text),
				UnescapedText: opt.Text,
				FunctionName:  g.FunctionName(opt),
				NodeID:        opt.ID,
			})
		}
		data["Choices"] = choices
	}
	return p.substitute(ctx, tmpl, data, c, st)
}

// renderCondition renders a condition node as its check wrapped in the Condition
// template. The first next step is the branch taken when the check holds, the
// second one the branch taken otherwise.
func (p *Pass) renderCondition(ctx context.Context, g *dialog.Graph, n *dialog.Node, c *exporterr.Collector, trail []string) (string, error) {
	if n.ActionType == "" {
		c.Add(exporterr.KindStepRenderFailed, n.ID, "condition node has no condition type")
		return "", nil
	}
	t := templates.Type(n.ActionType)
	if !p.exporter.registry.Supports(t) {
		c.Add(exporterr.KindStepRenderFailed, n.ID, "unsupported action type "+n.ActionType)
		return "", nil
	}
	tmpl, err := p.Template(ctx, g, t)
	if err != nil {
		return "", err
	}
	check, err := p.exporter.registry.Render(ctx, tmpl, p.env(g, n, c, nil))
	if err != nil {
		return "", err
	}
	check = strings.TrimSpace(check)
	if check == "" {
		return "", nil
	}

	branches := g.NextSteps(n.ID)
	if len(branches) > 2 {
		c.Add(exporterr.KindStepRenderFailed, n.ID, fmt.Sprintf("condition node has %d branches, only the first two are rendered", len(branches)))
		branches = branches[:2]
	}
	if len(branches) > 0 && len(trail) >= p.exporter.maxDepth {
		c.Add(exporterr.KindStepRenderFailed, n.ID, "maximum step depth reached")
		branches = nil
	}
	inner := append(trail[:len(trail):len(trail)], n.ID)
	code := make([]string, 2)
	for i, b := range branches {
		if code[i], err = p.step(ctx, g, b, c, inner); err != nil {
			return "", err
		}
	}

	wrap, err := p.Template(ctx, g, templates.Condition)
	if err != nil {
		return "", err
	}
	data := map[string]any{
		"FunctionName": g.FunctionName(n),
		"NodeID":       n.ID,
		"Condition":    check,
		"True":         code[0],
		"False":        code[1],
		"HasFalse":     code[1] != "",
	}
	return p.substitute(ctx, wrap, data, c, nil)
}

// substitute renders a non-action template, recording template problems
func (p *Pass) substitute(ctx context.Context, tmpl *templates.Template, data any, c *exporterr.Collector, st *stepper) (string, error) {
	out, err := render.Substitute(ctx, tmpl, data, p.hooks(c, st))
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		if hookErr := render.HookFailure(err); hookErr != nil {
			return "", hookErr
		}
		c.Add(exporterr.KindTemplateInvalid, string(tmpl.Type), err.Error())
		return "", nil
	}
	return strings.TrimRight(out, "\n"), nil
}

// RenderFunction renders the function generated for a node: the DialogFunction
// template wrapped around the node code and the steps rendered inline after it.
// The node itself is never rendered as a call, so reference nodes yield a
// function running their next steps.
func (p *Pass) RenderFunction(ctx context.Context, req ActionRequest) (Result, error) {
	node, err := req.node()
	if err != nil {
		return Result{}, err
	}
	c := exporterr.New()
	code, err := p.renderChain(ctx, req.Graph, node, c, nil)
	if err != nil {
		return Result{}, err
	}

	tmpl, err := p.Template(ctx, req.Graph, templates.DialogFunction)
	if err != nil {
		return Result{}, err
	}
	data := map[string]any{
		"FunctionName": req.Graph.FunctionName(node),
		"NodeID":       node.ID,
		"Code":         code,
	}
	text, err := p.substitute(ctx, tmpl, data, c, nil)
	if err != nil {
		return Result{}, err
	}
	return result(text, c), nil
}

func joinLines(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return strings.TrimRight(a, "\n") + "\n" + b
}
