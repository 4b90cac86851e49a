package project

// FieldType is the declared type of a flex field
type FieldType string

const (
	FieldTypeString    FieldType = "String"
	FieldTypeMultiLine FieldType = "MultiLine"
	FieldTypeNumber    FieldType = "Number"
	FieldTypeOption    FieldType = "Option"
)

// IsNumeric reports whether values of this type are emitted without quoting or escaping
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeNumber
}

// FlexField is a named, typed attribute on a game-design object
type FlexField struct {
	Name  string    `json:"name"`
	Type  FieldType `json:"type"`
	Value string    `json:"value"`
}

// FlexFieldObject is the common shape of every object exposing flex fields to templates
type FlexFieldObject struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"project_id"`
	Name      string      `json:"name"`
	Fields    []FlexField `json:"fields,omitempty"`
}

// Field returns the flex field with the given name
func (o *FlexFieldObject) Field(name string) (FlexField, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FlexField{}, false
}

// Npc is a non-player character; the player is modeled as an Npc with IsPlayer set
type Npc struct {
	FlexFieldObject
	IsPlayer     bool                `json:"is_player,omitempty"`
	DailyRoutine []DailyRoutineEvent `json:"daily_routine,omitempty"`
}

// RoutineEvent returns the daily routine event with the given id
func (n *Npc) RoutineEvent(eventID string) (*DailyRoutineEvent, bool) {
	for i := range n.DailyRoutine {
		if n.DailyRoutine[i].EventID == eventID {
			return &n.DailyRoutine[i], true
		}
	}
	return nil, false
}

// Item is an inventory object
type Item struct {
	FlexFieldObject
}

// Skill is a learnable ability
type Skill struct {
	FlexFieldObject
}

// Quest is a trackable objective
type Quest struct {
	FlexFieldObject
	IsMainQuest bool `json:"is_main_quest,omitempty"`
}

// MapMarker is a named location on a map
type MapMarker struct {
	MapID      string  `json:"map_id"`
	MarkerID   string  `json:"marker_id"`
	MarkerType string  `json:"marker_type"` // e.g. "npc", "item", "misc"
	MapName    string  `json:"map_name"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// GameTime is a time of day on the in-game clock
type GameTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// DailyRoutineEvent is a scheduled entry in an NPC's daily routine
type DailyRoutineEvent struct {
	EventID          string   `json:"event_id"`
	EventType        string   `json:"event_type"` // "Movement" | "Script"
	EarliestTime     GameTime `json:"earliest_time"`
	LatestTime       GameTime `json:"latest_time"`
	ScriptName       string   `json:"script_name,omitempty"`
	MovementState    string   `json:"movement_state,omitempty"`
	EnabledByDefault bool     `json:"enabled_by_default"`
}

// Config holds the export settings of one project
type Config struct {
	ProjectID                 string `json:"project_id"`
	ScriptExtension           string `json:"script_extension"`
	ScriptLanguage            string `json:"script_language"`
	EscapeCharacter           string `json:"escape_character"`
	CharactersNeedingEscaping string `json:"characters_needing_escaping"`
	NewlineCharacter          string `json:"newline_character"`
	LanguageFileExtension     string `json:"language_file_extension"`
	LanguageFileLanguage      string `json:"language_file_language"`
}

// DefaultConfig returns the settings used when a project has not saved its own
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID:                 projectID,
		ScriptExtension:           "lua",
		ScriptLanguage:            "lua",
		EscapeCharacter:           `\`,
		CharactersNeedingEscaping: `"'\`,
		NewlineCharacter:          `\n`,
		LanguageFileExtension:     "ini",
		LanguageFileLanguage:      "en",
	}
}
