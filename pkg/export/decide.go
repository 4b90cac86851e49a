package export

import (
	"context"

	"golang.org/x/text/language"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/dialog"
)

// Decide evaluates the project's generation condition set against a node
func (p *Pass) Decide(ctx context.Context, g *dialog.Graph, nodeID string) (conditions.Decision, error) {
	set, err := p.data.GenerationConditions(ctx, p.projectID)
	if err != nil {
		return conditions.Decision{}, err
	}
	nodeCtx, err := g.Context(nodeID)
	if err != nil {
		return conditions.Decision{}, err
	}
	d := set.Decide(nodeCtx)
	p.logger.Debug("function generation decision",
		"dialog_id", g.ID,
		"node_id", nodeID,
		"generate", d.Generate,
		"generate_rule", d.GenerateRule,
		"prevent_rule", d.PreventRule,
	)
	return d, nil
}

// DecideFunctionGeneration reports whether a node becomes its own function:
// a generate rule matches and no prevent rule does.
func (p *Pass) DecideFunctionGeneration(ctx context.Context, g *dialog.Graph, nodeID string) (bool, error) {
	d, err := p.Decide(ctx, g, nodeID)
	if err != nil {
		return false, err
	}
	return d.Generate, nil
}

// ConditionDisplay renders both rule lists of the project's set for display
func (p *Pass) ConditionDisplay(ctx context.Context, tag language.Tag) (generate, prevent string, err error) {
	set, err := p.data.GenerationConditions(ctx, p.projectID)
	if err != nil {
		return "", "", err
	}
	generate, prevent = set.Display(tag)
	return generate, prevent, nil
}
