package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params is the union of every parameter an action or condition node may carry in its data
type Params struct {
	NpcID       string `json:"npc_id,omitempty"` // chosen NPC, or the walk target
	ItemID      string `json:"item_id,omitempty"`
	QuestID     string `json:"quest_id,omitempty"`
	SkillID     string `json:"skill_id,omitempty"`
	MapID       string `json:"map_id,omitempty"`
	MarkerID    string `json:"marker_id,omitempty"`
	EventID     string `json:"event_id,omitempty"`
	FieldName   string `json:"field_name,omitempty"`
	Operator    string `json:"operator,omitempty"`
	Value       Scalar `json:"value,omitempty"`
	Quantity    Scalar `json:"quantity,omitempty"`
	QuestState  string `json:"quest_state,omitempty"`
	Text        string `json:"text,omitempty"`
	Animation   string `json:"animation,omitempty"`
	State       string `json:"state,omitempty"`
	Code        string `json:"code,omitempty"`
	WaitType    string `json:"wait_type,omitempty"`
	WaitUnit    string `json:"wait_unit,omitempty"`
	WaitAmount  Scalar `json:"wait_amount,omitempty"`
	Hours       Scalar `json:"hours,omitempty"`
	Minutes     Scalar `json:"minutes,omitempty"`
	Enabled     bool   `json:"enabled,omitempty"`
	IsAlive     *bool  `json:"is_alive,omitempty"`
	HasLearned  *bool  `json:"has_learned,omitempty"`
	Description string `json:"description,omitempty"`
}

// Scalar is a parameter authored either as a JSON string or as a bare number or bool
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Scalar(v)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return fmt.Errorf("expected a scalar, got %s", b)
	default:
		*s = Scalar(b)
	}
	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// DecodeParams reads the parameters of a node; empty data decodes to zero params
func DecodeParams(data json.RawMessage) (Params, error) {
	var p Params
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Quest states understood by generated scripts
var questStates = map[string]string{
	"NotStarted": "NotStarted",
	"InProgress": "InProgress",
	"Success":    "Success",
	"Failed":     "Failed",
}

// Wait types and units understood by generated scripts
var (
	waitTypes = map[string]string{
		"RealTime": "RealTime",
		"GameTime": "GameTime",
	}
	waitUnits = map[string]string{
		"Milliseconds": "Milliseconds",
		"Seconds":      "Seconds",
		"Minutes":      "Minutes",
		"Hours":        "Hours",
		"Days":         "Days",
	}
)

const (
	UnknownState = "UNKNOWN_STATE"
	UnknownType  = "UNKNOWN_TYPE"
	UnknownUnit  = "UNKNOWN_UNIT"
)

// QuestStateToken maps an authored quest state to its canonical token
func QuestStateToken(s string) string {
	return mapToken(questStates, s, UnknownState)
}

// WaitTypeToken maps an authored wait type to its canonical token
func WaitTypeToken(s string) string {
	return mapToken(waitTypes, s, UnknownType)
}

// WaitUnitToken maps an authored wait unit to its canonical token
func WaitUnitToken(s string) string {
	return mapToken(waitUnits, s, UnknownUnit)
}

func mapToken(m map[string]string, s, unknown string) string {
	if v, ok := m[s]; ok {
		return v
	}
	return unknown
}

type operatorSet int

const (
	noOperator operatorSet = iota
	changeOperators
	checkOperators
)

var operators = map[operatorSet]map[string]bool{
	changeOperators: {"=": true, "+": true, "-": true, "*": true, "/": true},
	checkOperators:  {"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true},
}

func (o operatorSet) allows(op string) bool {
	return operators[o][op]
}
