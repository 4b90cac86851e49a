package binding

import (
	"strconv"
	"strings"

	"github.com/jwebster45206/story-export/pkg/project"
)

// Field is the template-facing view of one flex field
type Field struct {
	Name           string
	Type           project.FieldType
	Value          string // escaped text, or canonical number
	UnescapedValue string
}

// Object is the template-facing view of a flex field object.
// Templates access .Quest.Fields.Health.Value or iterate .Quest.FieldList.
type Object struct {
	ID            string
	Name          string
	UnescapedName string
	Fields        map[string]Field
	FieldList     []Field
}

// Npc is the template-facing view of an NPC or the player
type Npc struct {
	Object
	IsPlayer bool
}

// Marker is the template-facing view of a map marker
type Marker struct {
	MapID      string
	MapName    string
	MarkerID   string
	MarkerType string
	Name       string
	X          string
	Y          string
}

// Event is the template-facing view of a daily routine event
type Event struct {
	EventID       string
	EventType     string
	ScriptName    string
	MovementState string
	EarliestTime  string
	LatestTime    string
}

// Binder converts domain objects into template-facing values.
// Binding never fails; missing fields are detected by the caller before binding.
type Binder struct {
	esc Escaper
}

// New creates a binder using the escaping rules of cfg
func New(cfg *project.Config) *Binder {
	return &Binder{esc: NewEscaper(cfg)}
}

// Escape applies the project's escaping rules to free text
func (b *Binder) Escape(s string) string {
	return b.esc.Escape(s)
}

// Field binds a single flex field
func (b *Binder) Field(f project.FlexField) Field {
	if f.Type.IsNumeric() {
		n := FormatNumber(f.Value)
		return Field{Name: f.Name, Type: f.Type, Value: n, UnescapedValue: n}
	}
	return Field{Name: f.Name, Type: f.Type, Value: b.esc.Escape(f.Value), UnescapedValue: f.Value}
}

// Object binds a flex field object
func (b *Binder) Object(o *project.FlexFieldObject) Object {
	if o == nil {
		return Object{Fields: map[string]Field{}}
	}
	out := Object{
		ID:            o.ID,
		Name:          b.esc.Escape(o.Name),
		UnescapedName: o.Name,
		Fields:        make(map[string]Field, len(o.Fields)),
		FieldList:     make([]Field, 0, len(o.Fields)),
	}
	for _, f := range o.Fields {
		bf := b.Field(f)
		out.Fields[f.Name] = bf
		out.FieldList = append(out.FieldList, bf)
	}
	return out
}

// Npc binds an NPC, flagging the player
func (b *Binder) Npc(n *project.Npc) Npc {
	if n == nil {
		return Npc{Object: b.Object(nil)}
	}
	return Npc{Object: b.Object(&n.FlexFieldObject), IsPlayer: n.IsPlayer}
}

// Marker binds a map marker
func (b *Binder) Marker(m *project.MapMarker) Marker {
	if m == nil {
		return Marker{}
	}
	return Marker{
		MapID:      m.MapID,
		MapName:    b.esc.Escape(m.MapName),
		MarkerID:   m.MarkerID,
		MarkerType: m.MarkerType,
		Name:       b.esc.Escape(m.Name),
		X:          strconv.FormatFloat(m.X, 'f', -1, 64),
		Y:          strconv.FormatFloat(m.Y, 'f', -1, 64),
	}
}

// Event binds a daily routine event
func (b *Binder) Event(e *project.DailyRoutineEvent) Event {
	if e == nil {
		return Event{}
	}
	return Event{
		EventID:       e.EventID,
		EventType:     e.EventType,
		ScriptName:    b.esc.Escape(e.ScriptName),
		MovementState: b.esc.Escape(e.MovementState),
		EarliestTime:  FormatTime(e.EarliestTime),
		LatestTime:    FormatTime(e.LatestTime),
	}
}

// FormatNumber renders a numeric value without quoting or trailing zeros
func FormatNumber(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "0"
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatTime renders a game time as HH:MM
func FormatTime(t project.GameTime) string {
	return pad2(t.Hours) + ":" + pad2(t.Minutes)
}

func pad2(n int) string {
	if n >= 0 && n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
