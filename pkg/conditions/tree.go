package conditions

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownConditionType = errors.New("unknown condition type")
	ErrEmptyGroup           = errors.New("condition group has no children")
	ErrMissingValue         = errors.New("condition is missing its value")
)

// ID addresses an element inside a Tree
type ID int

type element struct {
	kind     Kind
	value    string
	children []ID
}

// Tree is the evaluatable form of a list of condition elements.
// Elements live in one arena and reference their children by index.
type Tree struct {
	elements []element
	roots    []ID
}

// Compile converts stored elements into a Tree.
// Any unknown kind, empty group or leaf without a value invalidates the whole list.
func Compile(elems []Element) (*Tree, error) {
	return compile("rules", elems)
}

func compile(name string, elems []Element) (*Tree, error) {
	t := &Tree{}
	var errs []error
	for i, e := range elems {
		id, err := t.add(fmt.Sprintf("%s[%d]", name, i), e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.roots = append(t.roots, id)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func (t *Tree) add(path string, e Element) (ID, error) {
	if !e.Type.known() {
		return 0, fmt.Errorf("%s: %w: %q", path, ErrUnknownConditionType, e.Type)
	}
	if e.Type.needsValue() && e.Value == "" {
		return 0, fmt.Errorf("%s: %w: %s", path, ErrMissingValue, e.Type)
	}
	if e.Type.IsGroup() && len(e.Children) == 0 {
		return 0, fmt.Errorf("%s: %w", path, ErrEmptyGroup)
	}

	id := ID(len(t.elements))
	t.elements = append(t.elements, element{kind: e.Type, value: e.Value})

	var errs []error
	var children []ID
	for i, c := range e.Children {
		cid, err := t.add(fmt.Sprintf("%s.children[%d]", path, i), c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		children = append(children, cid)
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	t.elements[id].children = children
	return id, nil
}

// Validate reports every problem in a list of stored elements
func Validate(elems []Element) error {
	_, err := Compile(elems)
	return err
}

// Roots returns the top-level elements in authored order
func (t *Tree) Roots() []ID {
	return t.roots
}

// Len returns the number of elements in the tree
func (t *Tree) Len() int {
	return len(t.elements)
}

// Kind returns the kind of an element
func (t *Tree) Kind(id ID) Kind {
	return t.elements[id].kind
}

// Value returns the configured value of a leaf
func (t *Tree) Value(id ID) string {
	return t.elements[id].value
}

// Children returns the children of a group
func (t *Tree) Children(id ID) []ID {
	return t.elements[id].children
}
