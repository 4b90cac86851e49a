package conditions

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Set is the compiled pair of rule lists deciding function generation
type Set struct {
	Generate *Tree
	Prevent  *Tree
}

// CompileSet compiles both rule lists of a stored set
func CompileSet(s *StoredSet) (*Set, error) {
	if s == nil {
		return nil, errors.New("condition set is nil")
	}
	gen, genErr := compile("generate_rules", s.Generate)
	prev, prevErr := compile("prevent_rules", s.Prevent)
	if err := errors.Join(genErr, prevErr); err != nil {
		return nil, fmt.Errorf("invalid generation condition set: %w", err)
	}
	return &Set{Generate: gen, Prevent: prev}, nil
}

// ValidateSet reports every problem of a stored set
func ValidateSet(s *StoredSet) error {
	_, err := CompileSet(s)
	return err
}

// Decision records the outcome of a function generation decision
type Decision struct {
	Generate     bool
	GenerateRule int // index of the first matching generate rule, -1 if none
	PreventRule  int // index of the first matching prevent rule, -1 if none
}

// Decide reports whether a node with the given context gets its own function:
// a generate rule matches and no prevent rule matches.
func (s *Set) Decide(ctx Context) Decision {
	g, genOK := s.Generate.firstMatch(ctx, nil)
	p, prevOK := s.Prevent.firstMatch(ctx, nil)
	return Decision{
		Generate:     genOK && !prevOK,
		GenerateRule: g,
		PreventRule:  p,
	}
}

// Display renders both lists of the set
func (s *Set) Display(tag language.Tag) (generate, prevent string) {
	return Render(s.Generate, tag), Render(s.Prevent, tag)
}
