package render

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/muesli/reflow/indent"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// General renders template bodies written in Go template syntax. A key missing from
// the bound data is an error:
//
//	SetQuestState("{{ .Quest.Name }}", "{{ .QuestState }}")
//	{{ range .Npc.FieldList }}{{ .Name }} = {{ .Value }}{{ end }}
//	ShowText({{ langkey .Text }})
//	{{ nextstep | indent 4 }}
type General struct{}

func (General) Substitute(ctx context.Context, body string, data any, hooks Hooks) (string, error) {
	tmpl, err := template.New("body").
		Option("missingkey=error").
		Funcs(generalFuncs(ctx, hooks)).
		Parse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return b.String(), nil
}

func generalFuncs(ctx context.Context, hooks Hooks) template.FuncMap {
	return template.FuncMap{
		"langkey": func(text string) (string, error) {
			if hooks.LanguageKeys == nil {
				return text, nil
			}
			key, err := hooks.LanguageKeys.LanguageKey(ctx, text)
			if err != nil {
				return "", &HookError{Hook: "langkey", Err: err}
			}
			return key, nil
		},
		"nextstep": func() (string, error) {
			if hooks.Steps == nil {
				return "", nil
			}
			step, err := hooks.Steps.RenderNextStep(ctx)
			if err != nil {
				return "", &HookError{Hook: "nextstep", Err: err}
			}
			return step, nil
		},
		"indent": func(width int, s string) string {
			if width <= 0 {
				return s
			}
			return indent.String(s, uint(width))
		},
		"title": func(s string) string { return cases.Title(language.English).String(s) },
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"join":  strings.Join,
	}
}
