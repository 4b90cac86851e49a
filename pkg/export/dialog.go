package export

import (
	"context"
	"sort"
	"sync"

	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/exporterr"
)

// FunctionExport is one generated function of a dialog export
type FunctionExport struct {
	NodeID string `json:"node_id"`
	Name   string `json:"name"`
	Result
}

// DialogExport is the complete export of one dialog
type DialogExport struct {
	DialogID     string           `json:"dialog_id"`
	Functions    []FunctionExport `json:"functions"`
	LanguageFile Result           `json:"language_file"`
	LanguageKeys []LanguageKey    `json:"language_keys"`
}

// Count returns the number of problems of the given severity across the export
func (d *DialogExport) Count(sev exporterr.Severity) int {
	n := 0
	count := func(errs []exporterr.RenderError) {
		for _, e := range errs {
			if e.Severity == sev {
				n++
			}
		}
	}
	for _, f := range d.Functions {
		count(f.Errors)
	}
	count(d.LanguageFile.Errors)
	return n
}

// functionRefs records, per dialog, the nodes whose function rendered code calls
type functionRefs struct {
	mu    sync.Mutex
	nodes map[string]map[string]bool
}

func newFunctionRefs() *functionRefs {
	return &functionRefs{nodes: make(map[string]map[string]bool)}
}

func (r *functionRefs) add(dialogID, nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nodes[dialogID] == nil {
		r.nodes[dialogID] = make(map[string]bool)
	}
	r.nodes[dialogID][nodeID] = true
}

func (r *functionRefs) has(dialogID, nodeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[dialogID][nodeID]
}

// ExportDialog renders a function for every node that needs one, in node order:
// entry nodes (without parents), nodes the generation conditions give their own
// function, direct continue targets and every node the rendered code calls. The
// language file of every key registered so far follows.
func (p *Pass) ExportDialog(ctx context.Context, g *dialog.Graph) (*DialogExport, error) {
	out := &DialogExport{DialogID: g.ID, Functions: []FunctionExport{}}

	continues := make(map[string]bool)
	for i := range g.Nodes {
		if child, ok := g.DirectContinue(g.Nodes[i].ID); ok {
			continues[child.ID] = true
		}
	}

	// rendering a function may reference nodes already passed, so repeat until stable
	emitted := make(map[string]int)
	for added := true; added; {
		added = false
		for i := range g.Nodes {
			n := &g.Nodes[i]
			if _, done := emitted[n.ID]; done {
				continue
			}
			own, err := p.needsFunction(ctx, g, n, continues)
			if err != nil {
				return nil, err
			}
			if !own {
				continue
			}

			res, err := p.RenderFunction(ctx, ActionRequest{Graph: g, NodeID: n.ID})
			if err != nil {
				return nil, err
			}
			emitted[n.ID] = i
			out.Functions = append(out.Functions, FunctionExport{NodeID: n.ID, Name: g.FunctionName(n), Result: res})
			added = true
		}
	}
	sort.SliceStable(out.Functions, func(a, b int) bool {
		return emitted[out.Functions[a].NodeID] < emitted[out.Functions[b].NodeID]
	})

	lang, err := p.RenderLanguageFile(ctx)
	if err != nil {
		return nil, err
	}
	out.LanguageFile = lang
	out.LanguageKeys = p.keys.All()

	p.logger.Info("dialog exported",
		"dialog_id", g.ID,
		"functions", len(out.Functions),
		"language_keys", len(out.LanguageKeys),
		"errors", out.Count(exporterr.SeverityError),
	)
	return out, nil
}

func (p *Pass) needsFunction(ctx context.Context, g *dialog.Graph, n *dialog.Node, continues map[string]bool) (bool, error) {
	if len(g.Parents(n.ID)) == 0 || continues[n.ID] || p.refs.has(g.ID, n.ID) {
		return true, nil
	}
	return p.DecideFunctionGeneration(ctx, g, n.ID)
}
