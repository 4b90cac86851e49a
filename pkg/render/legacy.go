package render

import (
	"context"
	"regexp"
	"strings"
)

// Legacy renders token templates:
//
//	SetQuestState("{{Quest.Name}}", "{{QuestState}}")
//	{{#each Npc.FieldList}}{{Name}} = {{Value}}{{/each}}
//	ShowText({{langkey Text}})
//	{{nextstep}}
//
// Unknown tokens render as empty text. Anything between braces that is not a
// token is kept verbatim so templates may contain literal braces, and so is an
// each block that is never closed.
type Legacy struct{}

var legacyToken = regexp.MustCompile(`\{\{\s*(#each\s+[\w.]+|/each|langkey\s+[\w.]+|nextstep|[\w.]+)\s*\}\}`)

type legacyKind int

const (
	legacyText legacyKind = iota
	legacyVar
	legacyEach
	legacyLangKey
	legacyStep
)

type legacyNode struct {
	kind     legacyKind
	text     string // literal text, or the path for var/each/langkey
	start    int    // offset of an each opener in the body
	children []*legacyNode
}

func (Legacy) Substitute(ctx context.Context, body string, data any, hooks Hooks) (string, error) {
	root := parseLegacy(body)
	var b strings.Builder
	if err := execLegacy(ctx, &b, root.children, scope{flatten(data)}, hooks); err != nil {
		return "", err
	}
	return b.String(), nil
}

func parseLegacy(body string) *legacyNode {
	root := &legacyNode{}
	stack := []*legacyNode{root}
	top := func() *legacyNode { return stack[len(stack)-1] }

	last := 0
	for _, m := range legacyToken.FindAllStringSubmatchIndex(body, -1) {
		if m[0] > last {
			top().children = append(top().children, &legacyNode{kind: legacyText, text: body[last:m[0]]})
		}
		last = m[1]
		tok := body[m[2]:m[3]]

		switch {
		case strings.HasPrefix(tok, "#each"):
			n := &legacyNode{kind: legacyEach, text: trimPath(strings.TrimPrefix(tok, "#each")), start: m[0]}
			top().children = append(top().children, n)
			stack = append(stack, n)
		case tok == "/each":
			if len(stack) == 1 {
				// unmatched close is literal text
				top().children = append(top().children, &legacyNode{kind: legacyText, text: body[m[0]:m[1]]})
				continue
			}
			stack = stack[:len(stack)-1]
		case strings.HasPrefix(tok, "langkey"):
			top().children = append(top().children, &legacyNode{kind: legacyLangKey, text: trimPath(strings.TrimPrefix(tok, "langkey"))})
		case tok == "nextstep":
			top().children = append(top().children, &legacyNode{kind: legacyStep})
		default:
			top().children = append(top().children, &legacyNode{kind: legacyVar, text: trimPath(tok)})
		}
	}
	if last < len(body) {
		top().children = append(top().children, &legacyNode{kind: legacyText, text: body[last:]})
	}
	if len(stack) > 1 {
		// an unclosed each and everything after it is literal text
		open := stack[1]
		root.children[len(root.children)-1] = &legacyNode{kind: legacyText, text: body[open.start:]}
	}
	return root
}

func execLegacy(ctx context.Context, b *strings.Builder, nodes []*legacyNode, sc scope, hooks Hooks) error {
	for _, n := range nodes {
		switch n.kind {
		case legacyText:
			b.WriteString(n.text)
		case legacyVar:
			v, _ := sc.scalar(n.text)
			b.WriteString(v)
		case legacyEach:
			items, _ := sc.list(n.text)
			for _, item := range items {
				if err := execLegacy(ctx, b, n.children, append(sc, flatten(item)), hooks); err != nil {
					return err
				}
			}
		case legacyLangKey:
			text, _ := sc.scalar(n.text)
			if hooks.LanguageKeys == nil {
				b.WriteString(text)
				continue
			}
			key, err := hooks.LanguageKeys.LanguageKey(ctx, text)
			if err != nil {
				return &HookError{Hook: "langkey", Err: err}
			}
			b.WriteString(key)
		case legacyStep:
			if hooks.Steps == nil {
				continue
			}
			step, err := hooks.Steps.RenderNextStep(ctx)
			if err != nil {
				return &HookError{Hook: "nextstep", Err: err}
			}
			b.WriteString(step)
		}
	}
	return nil
}
