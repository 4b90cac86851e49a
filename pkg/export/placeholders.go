package export

import (
	"fmt"

	"github.com/jwebster45206/story-export/pkg/actions"
	"github.com/jwebster45206/story-export/pkg/templates"
)

type tokenDef struct {
	name        string
	description string
	legacy      string
	general     string
}

func simple(name, description string) tokenDef {
	return tokenDef{
		name:        name,
		description: description,
		legacy:      actions.Token(templates.EngineLegacy, name, false, false),
		general:     actions.Token(templates.EngineGeneral, name, false, false),
	}
}

func langKey(name, description string) tokenDef {
	return tokenDef{
		name:        name,
		description: description,
		legacy:      actions.Token(templates.EngineLegacy, name, false, true),
		general:     actions.Token(templates.EngineGeneral, name, false, true),
	}
}

func object(key, what string) []tokenDef {
	return []tokenDef{
		simple(key+".Name", "Name of the "+what),
		simple(key+".UnescapedName", "Unescaped name of the "+what),
		simple(key+".Fields.FieldName.Value", "Value of a field of the "+what),
		{
			name:        key + ".FieldList",
			description: "Fields of the " + what,
			legacy:      actions.Token(templates.EngineLegacy, key+".FieldList", true, false),
			general:     actions.Token(templates.EngineGeneral, key+".FieldList", true, false),
		},
	}
}

var nextStep = tokenDef{
	name:        "nextstep",
	description: "Code of the next dialog step",
	legacy:      "{{nextstep}}",
	general:     "{{ nextstep }}",
}

var textNode = []tokenDef{
	simple("FunctionName", "Name of the function generated for the node"),
	simple("NodeID", "Id of the node"),
	langKey("Text", "Language key of the text"),
	simple("UnescapedText", "Text without escaping"),
	nextStep,
}

// tokens of the template types not rendered by the action registry
var otherTokens = map[templates.Type][]tokenDef{
	templates.ObjectNpc:    append(object("Npc", "NPC"), simple("Npc.IsPlayer", "Whether the NPC is the player")),
	templates.ObjectPlayer: object("Player", "player"),
	templates.ObjectItem:   object("Item", "item"),
	templates.ObjectSkill:  object("Skill", "skill"),

	templates.DialogFunction: {
		simple("FunctionName", "Name of the function"),
		simple("NodeID", "Id of the node the function is generated for"),
		simple("Code", "Code of the node and the steps following it"),
	},
	templates.DialogStep: {
		simple("FunctionName", "Name of the function to call"),
		simple("NodeID", "Id of the called node"),
	},
	templates.NpcText:    textNode,
	templates.PlayerText: textNode,
	templates.Choice: append(textNode[:4:4], tokenDef{
		name:        "Choices",
		description: "Choice options",
		legacy:      "{{#each Choices}}{{FunctionName}} {{langkey Text}}{{/each}}",
		general:     "{{ range .Choices }}{{ .FunctionName }} {{ langkey .Text }}{{ end }}",
	}),
	templates.Condition: {
		simple("FunctionName", "Name of the function generated for the node"),
		simple("NodeID", "Id of the node"),
		simple("Condition", "Code of the condition check"),
		simple("True", "Code of the branch taken when the check holds"),
		simple("False", "Code of the branch taken otherwise"),
		simple("HasFalse", "Whether the node has a branch taken otherwise"),
	},

	templates.LanguageKey: {
		simple("Key", "Generated language key"),
		simple("Text", "Text of the key"),
	},
	templates.LanguageFile: {
		simple("Language", "Language of the file"),
		{
			name:        "Keys",
			description: "Every language key of the export",
			legacy:      "{{#each Keys}}{{Key}}={{Text}}{{/each}}",
			general:     "{{ range .Keys }}{{ .Key }}={{ .Text }}{{ end }}",
		},
	},
}

var placeholderRegistry = actions.NewRegistry(nil)

// PlaceholdersForType lists the tokens a template of type t may use, in the syntax of engine
func PlaceholdersForType(t templates.Type, engine templates.Engine) ([]templates.Placeholder, error) {
	if engine == "" {
		engine = templates.EngineGeneral
	}
	if engine != templates.EngineGeneral && engine != templates.EngineLegacy {
		return nil, fmt.Errorf("unknown rendering engine %q", engine)
	}

	if placeholderRegistry.Supports(t) {
		ph, err := placeholderRegistry.Placeholders(t, engine)
		if err != nil {
			return nil, err
		}
		return append(ph, placeholder(nextStep, engine)), nil
	}

	defs, ok := otherTokens[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", actions.ErrUnknownTemplateType, t)
	}
	out := make([]templates.Placeholder, 0, len(defs))
	for _, d := range defs {
		out = append(out, placeholder(d, engine))
	}
	return out, nil
}

func placeholder(d tokenDef, engine templates.Engine) templates.Placeholder {
	token := d.general
	if engine == templates.EngineLegacy {
		token = d.legacy
	}
	return templates.Placeholder{Name: d.name, Description: d.description, Token: token}
}
