package conditions

import (
	"strings"

	"golang.org/x/text/language"
)

// Labels holds the display text of one language
type Labels struct {
	And   string
	Or    string
	Kinds map[Kind]string
}

var (
	displayLanguages = []language.Tag{language.English, language.German}
	displayMatcher   = language.NewMatcher(displayLanguages)
	displayLabels    = []Labels{
		{
			And: "and",
			Or:  "or",
			Kinds: map[Kind]string{
				KindMultipleParents:   "MultipleParents",
				KindParentNodeType:    "ParentNodeType",
				KindCurrentNodeType:   "CurrentNodeType",
				KindChildNodeType:     "ChildNodeType",
				KindParentActionType:  "ParentActionType",
				KindCurrentActionType: "CurrentActionType",
				KindChildActionType:   "ChildActionType",
			},
		},
		{
			And: "und",
			Or:  "oder",
			Kinds: map[Kind]string{
				KindMultipleParents:   "MehrereEltern",
				KindParentNodeType:    "ElternKnotenTyp",
				KindCurrentNodeType:   "AktuellerKnotenTyp",
				KindChildNodeType:     "KindKnotenTyp",
				KindParentActionType:  "ElternAktionsTyp",
				KindCurrentActionType: "AktuellerAktionsTyp",
				KindChildActionType:   "KindAktionsTyp",
			},
		},
	}
)

// LabelsFor returns the display labels best matching tag, English when nothing matches
func LabelsFor(tag language.Tag) Labels {
	_, i, _ := displayMatcher.Match(tag)
	return displayLabels[i]
}

// ParseLanguage parses a BCP 47 tag, falling back to English
func ParseLanguage(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

// Render returns a human-readable expression for the tree.
// Top-level elements are joined by the OR text without brackets; every group is bracketed.
func Render(t *Tree, tag language.Tag) string {
	if t == nil {
		return ""
	}
	l := LabelsFor(tag)
	parts := make([]string, 0, len(t.roots))
	for _, root := range t.roots {
		parts = append(parts, t.render(root, l))
	}
	return strings.Join(parts, " "+l.Or+" ")
}

// RenderElement renders a single element and its descendants
func RenderElement(t *Tree, id ID, tag language.Tag) string {
	return t.render(id, LabelsFor(tag))
}

func (t *Tree) render(id ID, l Labels) string {
	e := t.elements[id]
	if e.kind.IsGroup() {
		op := l.And
		if e.kind == KindOr {
			op = l.Or
		}
		parts := make([]string, 0, len(e.children))
		for _, c := range e.children {
			parts = append(parts, t.render(c, l))
		}
		return "(" + strings.Join(parts, " "+op+" ") + ")"
	}

	label := l.Kinds[e.kind]
	if e.kind == KindMultipleParents {
		return label
	}
	return label + "(" + e.value + ")"
}
