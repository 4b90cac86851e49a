package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/story-export/pkg/project"
)

func TestEscaper_Escape(t *testing.T) {
	esc := NewEscaper(project.DefaultConfig("p1"))

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "quotes and newline", input: "He said \"hi\"\nBye", expected: `He said \"hi\"\nBye`},
		{name: "single quote", input: "It's", expected: `It\'s`},
		{name: "backslash", input: `a\b`, expected: `a\\b`},
		{name: "windows newline", input: "a\r\nb", expected: `a\nb`},
		{name: "plain text", input: "Hello", expected: "Hello"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, esc.Escape(tt.input))
		})
	}
}

func TestEscaper_CustomSettings(t *testing.T) {
	esc := NewEscaper(&project.Config{
		EscapeCharacter:           "%",
		CharactersNeedingEscaping: "%$",
		NewlineCharacter:          "<br>",
	})
	assert.Equal(t, "100%% of %$5<br>done", esc.Escape("100% of $5\ndone"))
}

func TestEscaper_NoNewlineToken(t *testing.T) {
	esc := NewEscaper(&project.Config{EscapeCharacter: `\`, CharactersNeedingEscaping: `"`})
	assert.Equal(t, "a\n\\\"b\\\"", esc.Escape("a\n\"b\""))
}

func TestBinder_Object(t *testing.T) {
	b := New(project.DefaultConfig("p1"))

	obj := b.Object(&project.FlexFieldObject{
		ID:   "q1",
		Name: `The "Main" Quest`,
		Fields: []project.FlexField{
			{Name: "Reward", Type: project.FieldTypeNumber, Value: "25.50"},
			{Name: "Giver", Type: project.FieldTypeString, Value: "Old 'Tom'"},
			{Name: "Empty", Type: project.FieldTypeNumber, Value: ""},
		},
	})

	assert.Equal(t, `The \"Main\" Quest`, obj.Name)
	assert.Equal(t, `The "Main" Quest`, obj.UnescapedName)
	assert.Equal(t, "25.5", obj.Fields["Reward"].Value)
	assert.Equal(t, `Old \'Tom\'`, obj.Fields["Giver"].Value)
	assert.Equal(t, "Old 'Tom'", obj.Fields["Giver"].UnescapedValue)
	assert.Equal(t, "0", obj.Fields["Empty"].Value)

	names := make([]string, 0, len(obj.FieldList))
	for _, f := range obj.FieldList {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Reward", "Giver", "Empty"}, names)
}

func TestBinder_NilInputsAreTotal(t *testing.T) {
	b := New(nil)
	assert.NotNil(t, b.Object(nil).Fields)
	assert.False(t, b.Npc(nil).IsPlayer)
	assert.Equal(t, Marker{}, b.Marker(nil))
	assert.Equal(t, Event{}, b.Event(nil))
}

func TestBinder_Npc(t *testing.T) {
	b := New(project.DefaultConfig("p1"))
	npc := b.Npc(&project.Npc{
		FlexFieldObject: project.FlexFieldObject{ID: "player", Name: "Hero"},
		IsPlayer:        true,
	})
	assert.True(t, npc.IsPlayer)
	assert.Equal(t, "Hero", npc.Name)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", FormatNumber(" 3.000 "))
	assert.Equal(t, "-0.25", FormatNumber("-0.25"))
	assert.Equal(t, "abc", FormatNumber("abc"))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "08:05", FormatTime(project.GameTime{Hours: 8, Minutes: 5}))
	assert.Equal(t, "23:59", FormatTime(project.GameTime{Hours: 23, Minutes: 59}))
}
