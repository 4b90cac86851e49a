package actions

import (
	"fmt"

	"github.com/jwebster45206/story-export/pkg/templates"
)

type placeholderDef struct {
	path        string
	description string
	iterate     bool // path is a list of fields
	langKey     bool // text that is turned into a language key
}

func objectPlaceholders(key, what string) []placeholderDef {
	return []placeholderDef{
		{path: key + ".Name", description: "Name of the " + what},
		{path: key + ".UnescapedName", description: "Unescaped name of the " + what},
		{path: key + ".Fields.FieldName.Value", description: "Value of a field of the " + what},
		{path: key + ".FieldList", description: "Fields of the " + what, iterate: true},
	}
}

func (s shape) placeholders() []placeholderDef {
	defs := []placeholderDef{
		{path: KeyFunctionName, description: "Name of the function generated for the node"},
		{path: KeyNodeID, description: "Id of the node"},
	}
	if s.has(refNpc) {
		defs = append(defs, objectPlaceholders(KeyNpc, "NPC of the dialog")...)
	}
	if s.has(refPlayer) {
		defs = append(defs, objectPlaceholders(KeyPlayer, "player")...)
	}
	if s.has(refChooseNpc) {
		defs = append(defs, objectPlaceholders(KeyChooseNpc, "chosen NPC")...)
	}
	if s.has(refItem) {
		defs = append(defs, objectPlaceholders(KeyItem, "item")...)
	}
	if s.has(refQuest) {
		defs = append(defs, objectPlaceholders(KeyQuest, "quest")...)
	}
	if s.has(refSkill) {
		defs = append(defs, objectPlaceholders(KeySkill, "skill")...)
	}
	if s.has(refMarker) {
		defs = append(defs,
			placeholderDef{path: KeyMarker + ".Name", description: "Name of the marker"},
			placeholderDef{path: KeyMarker + ".MapName", description: "Name of the map the marker is on"},
			placeholderDef{path: KeyMarker + ".X", description: "X position of the marker"},
			placeholderDef{path: KeyMarker + ".Y", description: "Y position of the marker"},
		)
	}
	if s.has(refEvent) {
		defs = append(defs,
			placeholderDef{path: KeyEvent + ".EventID", description: "Id of the daily routine event"},
			placeholderDef{path: KeyEvent + ".ScriptName", description: "Script of the daily routine event"},
			placeholderDef{path: KeyEvent + ".EarliestTime", description: "Earliest start time (HH:MM)"},
		)
	}
	if s.with(extraField) {
		defs = append(defs,
			placeholderDef{path: KeyField + ".Name", description: "Name of the changed or checked field"},
			placeholderDef{path: KeyValue, description: "Value, unquoted for number fields"},
			placeholderDef{path: KeyUnescapedValue, description: "Value without escaping"},
		)
	}
	if s.compares() {
		defs = append(defs, placeholderDef{path: KeyOperator, description: "Operator"})
	}
	if s.with(extraQuantity) {
		defs = append(defs, placeholderDef{path: KeyQuantity, description: "Item quantity"})
	}
	if s.with(extraQuestState) {
		defs = append(defs, placeholderDef{path: KeyQuestState, description: "Quest state (NotStarted, InProgress, Success, Failed)"})
	}
	if s.with(extraText) {
		defs = append(defs,
			placeholderDef{path: KeyText, description: "Language key of the text", langKey: true},
			placeholderDef{path: KeyUnescapedText, description: "Text without escaping"},
		)
	}
	if s.with(extraAnimation) {
		defs = append(defs, placeholderDef{path: KeyAnimation, description: "Animation name"})
	}
	if s.with(extraState) {
		defs = append(defs, placeholderDef{path: KeyState, description: "State"})
	}
	if s.with(extraCode) {
		defs = append(defs, placeholderDef{path: KeyCode, description: "Script code"})
	}
	if s.with(extraWait) {
		defs = append(defs,
			placeholderDef{path: KeyWaitType, description: "Wait type (RealTime, GameTime)"},
			placeholderDef{path: KeyWaitUnit, description: "Wait unit"},
			placeholderDef{path: KeyWaitAmount, description: "Wait amount"},
		)
	}
	if s.with(extraGameTime) {
		defs = append(defs,
			placeholderDef{path: KeyHours, description: "Hours"},
			placeholderDef{path: KeyMinutes, description: "Minutes"},
			placeholderDef{path: KeyTime, description: "Time (HH:MM)"},
		)
	}
	if s.with(extraEventState) {
		defs = append(defs, placeholderDef{path: KeyEnabled, description: "Whether the event is enabled"})
	}
	if s.with(extraAlive) {
		defs = append(defs, placeholderDef{path: KeyIsAlive, description: "Whether the NPC must be alive"})
	}
	if s.with(extraLearned) {
		defs = append(defs, placeholderDef{path: KeyHasLearned, description: "Whether the skill must be learned"})
	}
	if s.with(extraDuration) {
		defs = append(defs, placeholderDef{path: KeyDuration, description: "Fade duration"})
	}
	if s.with(extraDirectContinue) {
		defs = append(defs,
			placeholderDef{path: KeyHasDirectContinue, description: "Whether a direct continue step exists"},
			placeholderDef{path: KeyDirectContinueFunction, description: "Function called as direct continue"},
		)
	}
	return defs
}

// Placeholders lists the tokens available to a template of type t, in the syntax of engine
func (r *Registry) Placeholders(t templates.Type, engine templates.Engine) ([]templates.Placeholder, error) {
	s, ok := r.shapes[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplateType, t)
	}
	defs := s.placeholders()
	out := make([]templates.Placeholder, 0, len(defs)+1)
	for _, d := range defs {
		out = append(out, templates.Placeholder{
			Name:        d.path,
			Description: d.description,
			Token:       Token(engine, d.path, d.iterate, d.langKey),
		})
	}
	return out, nil
}

// Token returns the syntax inserting path in a template of the given engine
func Token(engine templates.Engine, path string, iterate, langKey bool) string {
	if engine == templates.EngineLegacy {
		switch {
		case iterate:
			return "{{#each " + path + "}}{{Name}} = {{Value}}{{/each}}"
		case langKey:
			return "{{langkey " + path + "}}"
		}
		return "{{" + path + "}}"
	}
	switch {
	case iterate:
		return "{{ range ." + path + " }}{{ .Name }} = {{ .Value }}{{ end }}"
	case langKey:
		return "{{ langkey ." + path + " }}"
	}
	return "{{ ." + path + " }}"
}
