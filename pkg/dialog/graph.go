package dialog

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/jwebster45206/story-export/pkg/conditions"
)

// NodeType discriminates the kinds of dialog nodes
type NodeType string

const (
	NodeTypeNpcText    NodeType = "NpcText"
	NodeTypePlayerText NodeType = "PlayerText"
	NodeTypeChoice     NodeType = "Choice"
	NodeTypeCondition  NodeType = "Condition"
	NodeTypeAction     NodeType = "Action"
	NodeTypeReference  NodeType = "Reference"
)

// Child slot ids tag outgoing edges
const (
	SlotNext           = 0
	SlotDirectContinue = 1
)

// Edge is a typed child edge of a node
type Edge struct {
	Slot   int    `json:"slot"`
	Target string `json:"target"`
}

// Node is a single step of a dialog graph
type Node struct {
	ID         string          `json:"id"`
	Type       NodeType        `json:"type"`
	ActionType string          `json:"action_type,omitempty"` // template type for action and condition nodes
	Data       json.RawMessage `json:"data,omitempty"`
	Text       string          `json:"text,omitempty"`
	Children   []Edge          `json:"children,omitempty"`
}

// IsAction reports whether the node is an action node
func (n *Node) IsAction() bool {
	return n.Type == NodeTypeAction
}

// Graph is an owned, acyclic-by-convention arena of nodes with a parent index
type Graph struct {
	ID    string `json:"id"`
	NpcID string `json:"npc_id,omitempty"` // NPC the dialog belongs to
	Nodes []Node `json:"nodes"`

	index   map[string]int
	parents map[string][]int
}

// New builds a graph and its indexes, rejecting duplicate ids and dangling edges
func New(id, npcID string, nodes []Node) (*Graph, error) {
	g := &Graph{ID: id, NpcID: npcID, Nodes: nodes}
	if err := g.build(); err != nil {
		return nil, err
	}
	return g, nil
}

// UnmarshalJSON decodes a graph and builds its indexes
func (g *Graph) UnmarshalJSON(data []byte) error {
	type Alias Graph
	aux := (*Alias)(g)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	return g.build()
}

func (g *Graph) build() error {
	g.index = make(map[string]int, len(g.Nodes))
	g.parents = make(map[string][]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node at position %d has no id", i)
		}
		if _, dup := g.index[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		g.index[n.ID] = i
	}
	for i, n := range g.Nodes {
		for _, e := range n.Children {
			if _, ok := g.index[e.Target]; !ok {
				return fmt.Errorf("node %q links to unknown node %q", n.ID, e.Target)
			}
			g.parents[e.Target] = append(g.parents[e.Target], i)
		}
	}
	return nil
}

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// Parents returns the nodes linking to id, in graph order
func (g *Graph) Parents(id string) []*Node {
	idx := g.parents[id]
	out := make([]*Node, 0, len(idx))
	for _, i := range idx {
		out = append(out, &g.Nodes[i])
	}
	return out
}

// Children returns every child of id regardless of slot
func (g *Graph) Children(id string) []*Node {
	return g.childrenWhere(id, func(Edge) bool { return true })
}

// NextSteps returns the children reached by normal flow; direct-continue edges are excluded
func (g *Graph) NextSteps(id string) []*Node {
	return g.childrenWhere(id, func(e Edge) bool { return e.Slot != SlotDirectContinue })
}

// DirectContinue returns the child linked through the direct-continue slot
func (g *Graph) DirectContinue(id string) (*Node, bool) {
	children := g.childrenWhere(id, func(e Edge) bool { return e.Slot == SlotDirectContinue })
	if len(children) == 0 {
		return nil, false
	}
	return children[0], true
}

func (g *Graph) childrenWhere(id string, keep func(Edge) bool) []*Node {
	n, ok := g.Node(id)
	if !ok {
		return nil
	}
	var out []*Node
	for _, e := range n.Children {
		if !keep(e) {
			continue
		}
		if child, ok := g.Node(e.Target); ok {
			out = append(out, child)
		}
	}
	return out
}

// Context builds the condition evaluation context of a node
func (g *Graph) Context(id string) (conditions.Context, error) {
	n, ok := g.Node(id)
	if !ok {
		return conditions.Context{}, fmt.Errorf("node %q not found in dialog %q", id, g.ID)
	}

	ctx := conditions.Context{Current: info(n)}
	for _, p := range g.Parents(id) {
		ctx.Parents = append(ctx.Parents, info(p))
	}
	for _, c := range g.Children(id) {
		ctx.Children = append(ctx.Children, info(c))
	}
	return ctx, nil
}

func info(n *Node) conditions.NodeInfo {
	ni := conditions.NodeInfo{Type: string(n.Type), IsAction: n.IsAction()}
	if ni.IsAction {
		ni.ActionType = n.ActionType
	}
	return ni
}

// FunctionName is the name of the generated function for a node
func (g *Graph) FunctionName(n *Node) string {
	return "DialogFunction_" + identifier(g.ID) + "_" + identifier(n.ID)
}

func identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
