package render

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-export/pkg/binding"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/templates"
)

type keyGen struct {
	keys []string
	err  error
}

func (k *keyGen) LanguageKey(_ context.Context, text string) (string, error) {
	if k.err != nil {
		return "", k.err
	}
	key := fmt.Sprintf("Key_%d", len(k.keys)+1)
	k.keys = append(k.keys, text)
	return key, nil
}

type stepper string

func (s stepper) RenderNextStep(context.Context) (string, error) { return string(s), nil }

type failingStepper struct{ err error }

func (s failingStepper) RenderNextStep(context.Context) (string, error) { return "", s.err }

func boundData() map[string]any {
	b := binding.New(project.DefaultConfig("p1"))
	npc := b.Npc(&project.Npc{
		FlexFieldObject: project.FlexFieldObject{
			ID:   "n1",
			Name: "Bob",
			Fields: []project.FlexField{
				{Name: "Health", Type: project.FieldTypeNumber, Value: "10"},
				{Name: "Mood", Type: project.FieldTypeString, Value: "grumpy"},
			},
		},
	})
	return map[string]any{
		"Npc":        npc,
		"QuestState": "InProgress",
		"Text":       "Hello there",
	}
}

func TestEngines_Equivalent(t *testing.T) {
	tests := []struct {
		name     string
		legacy   string
		general  string
		expected string
	}{
		{
			name:     "scalar",
			legacy:   `State("{{QuestState}}")`,
			general:  `State("{{ .QuestState }}")`,
			expected: `State("InProgress")`,
		},
		{
			name:     "nested member",
			legacy:   `{{Npc.Name}}:{{Npc.Fields.Health.Value}}`,
			general:  `{{ .Npc.Name }}:{{ .Npc.Fields.Health.Value }}`,
			expected: `Bob:10`,
		},
		{
			name:     "promoted flag",
			legacy:   `{{Npc.IsPlayer}}`,
			general:  `{{ .Npc.IsPlayer }}`,
			expected: `false`,
		},
		{
			name:     "iteration",
			legacy:   `{{#each Npc.FieldList}}{{Name}}={{Value}};{{/each}}`,
			general:  `{{ range .Npc.FieldList }}{{ .Name }}={{ .Value }};{{ end }}`,
			expected: `Health=10;Mood=grumpy;`,
		},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Legacy{}.Substitute(ctx, tt.legacy, boundData(), Hooks{})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)

			out, err = General{}.Substitute(ctx, tt.general, boundData(), Hooks{})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestLegacy_UnknownTokensAndLiteralBraces(t *testing.T) {
	out, err := Legacy{}.Substitute(context.Background(),
		`local t = { a = 1 } -- {{Missing.Token}}|{{ not a token! }}|{{/each}}`, boundData(), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, `local t = { a = 1 } -- |{{ not a token! }}|{{/each}}`, out)
}

func TestLegacy_EachFallsBackToOuterScope(t *testing.T) {
	out, err := Legacy{}.Substitute(context.Background(),
		`{{#each Npc.FieldList}}{{Npc.Name}}.{{Name}} {{/each}}`, boundData(), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, `Bob.Health Bob.Mood `, out)
}

func TestHooks(t *testing.T) {
	ctx := context.Background()

	t.Run("language keys", func(t *testing.T) {
		keys := &keyGen{}
		hooks := Hooks{LanguageKeys: keys}

		out, err := Legacy{}.Substitute(ctx, `Say({{langkey Text}})`, boundData(), hooks)
		require.NoError(t, err)
		assert.Equal(t, `Say(Key_1)`, out)

		out, err = General{}.Substitute(ctx, `Say({{ langkey .Text }})`, boundData(), hooks)
		require.NoError(t, err)
		assert.Equal(t, `Say(Key_2)`, out)
		assert.Equal(t, []string{"Hello there", "Hello there"}, keys.keys)
	})

	t.Run("language key failure propagates", func(t *testing.T) {
		hooks := Hooks{LanguageKeys: &keyGen{err: errors.New("boom")}}
		_, err := General{}.Substitute(ctx, `{{ langkey .Text }}`, boundData(), hooks)
		assert.Error(t, err)
		_, err = Legacy{}.Substitute(ctx, `{{langkey Text}}`, boundData(), hooks)
		assert.Error(t, err)
	})

	t.Run("hook failures are marked", func(t *testing.T) {
		boom := errors.New("boom")
		tests := []struct {
			name   string
			engine Engine
			body   string
			hooks  Hooks
		}{
			{name: "general langkey", engine: General{}, body: `{{ langkey .Text }}`, hooks: Hooks{LanguageKeys: &keyGen{err: boom}}},
			{name: "legacy langkey", engine: Legacy{}, body: `{{langkey Text}}`, hooks: Hooks{LanguageKeys: &keyGen{err: boom}}},
			{name: "general nextstep", engine: General{}, body: "a()\n{{ nextstep | indent 4 }}", hooks: Hooks{Steps: failingStepper{boom}}},
			{name: "legacy nextstep", engine: Legacy{}, body: "a()\n{{nextstep}}", hooks: Hooks{Steps: failingStepper{boom}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.engine.Substitute(ctx, tt.body, boundData(), tt.hooks)
				require.Error(t, err)
				assert.ErrorIs(t, HookFailure(err), boom)
			})
		}

		_, err := General{}.Substitute(ctx, `{{ .Text.Nope }}`, boundData(), Hooks{})
		require.Error(t, err)
		assert.NoError(t, HookFailure(err))
	})

	t.Run("without hooks", func(t *testing.T) {
		out, err := General{}.Substitute(ctx, `{{ langkey .Text }}|{{ nextstep }}`, boundData(), Hooks{})
		require.NoError(t, err)
		assert.Equal(t, `Hello there|`, out)
	})

	t.Run("next step indented", func(t *testing.T) {
		hooks := Hooks{Steps: stepper("a()\nb()")}
		out, err := General{}.Substitute(ctx, "function f()\n{{ nextstep | indent 4 }}\nend", nil, hooks)
		require.NoError(t, err)
		assert.Equal(t, "function f()\n    a()\n    b()\nend", out)

		out, err = Legacy{}.Substitute(ctx, "{{nextstep}}", nil, hooks)
		require.NoError(t, err)
		assert.Equal(t, "a()\nb()", out)
	})
}

func TestGeneral_Funcs(t *testing.T) {
	out, err := General{}.Substitute(context.Background(), `{{ title "old tom" }} {{ upper .QuestState }}`, boundData(), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "Old Tom INPROGRESS", out)
}

func TestGeneral_MissingKeys(t *testing.T) {
	ctx := context.Background()
	for _, body := range []string{`A({{ .Nope }})`, `B({{ .Npc.Nope }})`, `{{ if .Nope }}x{{ end }}`} {
		out, err := General{}.Substitute(ctx, body, boundData(), Hooks{})
		assert.Error(t, err, body)
		assert.NotContains(t, out, "<no value>", body)
	}
}

func TestLegacy_UnclosedEachIsLiteral(t *testing.T) {
	out, err := Legacy{}.Substitute(context.Background(),
		`{{QuestState}} {{#each Npc.FieldList}}{{Name}} {{Npc.Name}}`, boundData(), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, `InProgress {{#each Npc.FieldList}}{{Name}} {{Npc.Name}}`, out)

	out, err = Legacy{}.Substitute(context.Background(),
		`{{#each Npc.FieldList}}{{Name}};{{/each}}{{#each Npc.FieldList}}{{#each X}}{{/each}} tail`, boundData(), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, `Health;Mood;{{#each Npc.FieldList}}{{#each X}}{{/each}} tail`, out)
}

func TestGeneral_ParseError(t *testing.T) {
	_, err := General{}.Substitute(context.Background(), `{{ if }}`, nil, Hooks{})
	assert.Error(t, err)
}

func TestFor(t *testing.T) {
	e, err := For(templates.EngineLegacy)
	require.NoError(t, err)
	assert.IsType(t, Legacy{}, e)

	e, err = For("")
	require.NoError(t, err)
	assert.IsType(t, General{}, e)

	_, err = For("Scriban")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestSubstitute_UsesTemplateEngine(t *testing.T) {
	tmpl := &templates.Template{Code: `{{QuestState}}`, Engine: templates.EngineLegacy}
	out, err := Substitute(context.Background(), tmpl, boundData(), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "InProgress", out)
}

func TestFlatten(t *testing.T) {
	flat := Flatten(boundData())
	assert.Equal(t, "Bob", flat["Npc.Name"])
	assert.Equal(t, "grumpy", flat["Npc.Fields.Mood.Value"])
	assert.Equal(t, "false", flat["Npc.IsPlayer"])
	_, hasList := flat["Npc.FieldList"]
	assert.False(t, hasList)
}
