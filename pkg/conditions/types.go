package conditions

// Kind discriminates condition elements. Stored as a string.
type Kind string

const (
	KindAnd               Kind = "And"
	KindOr                Kind = "Or"
	KindMultipleParents   Kind = "MultipleParents"
	KindParentNodeType    Kind = "ParentNodeType"
	KindCurrentNodeType   Kind = "CurrentNodeType"
	KindChildNodeType     Kind = "ChildNodeType"
	KindParentActionType  Kind = "ParentActionType"
	KindCurrentActionType Kind = "CurrentActionType"
	KindChildActionType   Kind = "ChildActionType"
)

// IsGroup reports whether the kind combines child elements
func (k Kind) IsGroup() bool {
	return k == KindAnd || k == KindOr
}

func (k Kind) known() bool {
	switch k {
	case KindAnd, KindOr, KindMultipleParents,
		KindParentNodeType, KindCurrentNodeType, KindChildNodeType,
		KindParentActionType, KindCurrentActionType, KindChildActionType:
		return true
	}
	return false
}

func (k Kind) needsValue() bool {
	return k.known() && !k.IsGroup() && k != KindMultipleParents
}

// Element is the stored form of a condition: a group with children or a leaf with a value
type Element struct {
	Type     Kind      `json:"type"`
	Value    string    `json:"value,omitempty"`
	Children []Element `json:"children,omitempty"`
}

// StoredSet is the persisted generation condition set of a project.
// Both lists are an implicit OR over their top-level elements.
type StoredSet struct {
	ProjectID string    `json:"project_id,omitempty"`
	Generate  []Element `json:"generate_rules"`
	Prevent   []Element `json:"prevent_rules"`
}

// NodeInfo describes one node of the graph context
type NodeInfo struct {
	Type       string
	IsAction   bool
	ActionType string // empty unless IsAction
}

// Context is the graph neighbourhood a condition tree is evaluated against
type Context struct {
	Current  NodeInfo
	Parents  []NodeInfo
	Children []NodeInfo
}

// ParentCount returns the number of nodes linking to the current node
func (c Context) ParentCount() int {
	return len(c.Parents)
}

// And builds an AND group
func And(children ...Element) Element {
	return Element{Type: KindAnd, Children: children}
}

// Or builds an OR group
func Or(children ...Element) Element {
	return Element{Type: KindOr, Children: children}
}

// MultipleParents builds the multiple-parents leaf
func MultipleParents() Element {
	return Element{Type: KindMultipleParents}
}

func ParentNodeType(t string) Element    { return Element{Type: KindParentNodeType, Value: t} }
func CurrentNodeType(t string) Element   { return Element{Type: KindCurrentNodeType, Value: t} }
func ChildNodeType(t string) Element     { return Element{Type: KindChildNodeType, Value: t} }
func ParentActionType(t string) Element  { return Element{Type: KindParentActionType, Value: t} }
func CurrentActionType(t string) Element { return Element{Type: KindCurrentActionType, Value: t} }
func ChildActionType(t string) Element   { return Element{Type: KindChildActionType, Value: t} }
