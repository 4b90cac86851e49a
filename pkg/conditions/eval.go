package conditions

// LeafVisitor is called for every leaf actually evaluated, in evaluation order
type LeafVisitor func(id ID, result bool)

// Evaluate reports whether any top-level element matches the context
func (t *Tree) Evaluate(ctx Context) bool {
	_, ok := t.firstMatch(ctx, nil)
	return ok
}

// EvaluateFunc evaluates like Evaluate and reports each leaf it evaluates to visit
func (t *Tree) EvaluateFunc(ctx Context, visit LeafVisitor) bool {
	_, ok := t.firstMatch(ctx, visit)
	return ok
}

// EvaluateElement evaluates one element and its descendants
func (t *Tree) EvaluateElement(id ID, ctx Context) bool {
	return t.eval(id, ctx, nil)
}

// firstMatch returns the index of the first matching root
func (t *Tree) firstMatch(ctx Context, visit LeafVisitor) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, root := range t.roots {
		if t.eval(root, ctx, visit) {
			return i, true
		}
	}
	return -1, false
}

func (t *Tree) eval(id ID, ctx Context, visit LeafVisitor) bool {
	e := t.elements[id]
	switch e.kind {
	case KindAnd:
		// Empty groups are rejected by Compile
		for _, c := range e.children {
			if !t.eval(c, ctx, visit) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range e.children {
			if t.eval(c, ctx, visit) {
				return true
			}
		}
		return false
	}

	result := evalLeaf(e.kind, e.value, ctx)
	if visit != nil {
		visit(id, result)
	}
	return result
}

func evalLeaf(kind Kind, value string, ctx Context) bool {
	switch kind {
	case KindMultipleParents:
		return ctx.ParentCount() > 1
	case KindCurrentNodeType:
		return ctx.Current.Type == value
	case KindParentNodeType:
		return anyNode(ctx.Parents, func(n NodeInfo) bool { return n.Type == value })
	case KindChildNodeType:
		return anyNode(ctx.Children, func(n NodeInfo) bool { return n.Type == value })
	case KindCurrentActionType:
		return isActionOf(ctx.Current, value)
	case KindParentActionType:
		return anyNode(ctx.Parents, func(n NodeInfo) bool { return isActionOf(n, value) })
	case KindChildActionType:
		return anyNode(ctx.Children, func(n NodeInfo) bool { return isActionOf(n, value) })
	}
	return false
}

func isActionOf(n NodeInfo, actionType string) bool {
	return n.IsAction && n.ActionType == actionType
}

func anyNode(nodes []NodeInfo, match func(NodeInfo) bool) bool {
	for _, n := range nodes {
		if match(n) {
			return true
		}
	}
	return false
}
