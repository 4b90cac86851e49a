package exporterr

import (
	"fmt"
	"strings"
)

// Kind names a recoverable problem found while rendering
type Kind string

const (
	KindNpcNotFound               Kind = "npc_not_found"
	KindNoPlayerNpc               Kind = "no_player_npc_exists"
	KindItemNotFound              Kind = "item_not_found"
	KindQuestNotFound             Kind = "quest_not_found"
	KindSkillNotFound             Kind = "skill_not_found"
	KindMarkerNotFound            Kind = "marker_not_found"
	KindDailyRoutineEventNotFound Kind = "daily_routine_event_not_found"
	KindFlexFieldNotFound         Kind = "flex_field_not_found"
	KindUnknownOperator           Kind = "unknown_operator"
	KindInvalidActionData         Kind = "invalid_action_data"
	KindWaitOnlyDirectContinue    Kind = "wait_only_direct_continue"
	KindTemplateInvalid           Kind = "template_invalid"
	KindLanguageKeyFailed         Kind = "language_key_failed"
	KindStepRenderFailed          Kind = "step_render_failed"
)

// Severity separates real problems from suspicious but allowed constructs
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

var messages = map[Kind]string{
	KindNpcNotFound:               "NPC not found: %s",
	KindNoPlayerNpc:               "No player NPC exists in project %s",
	KindItemNotFound:              "Item not found: %s",
	KindQuestNotFound:             "Quest not found: %s",
	KindSkillNotFound:             "Skill not found: %s",
	KindMarkerNotFound:            "Marker %s not found on map %s",
	KindDailyRoutineEventNotFound: "Daily routine event %s not found for NPC %s",
	KindFlexFieldNotFound:         "Field %s not found on %s",
	KindUnknownOperator:           "Unknown operator %s",
	KindInvalidActionData:         "Invalid data on node %s: %s",
	KindWaitOnlyDirectContinue:    "Wait action %s only has a direct continue child",
	KindTemplateInvalid:           "Template %s could not be rendered: %s",
	KindLanguageKeyFailed:         "Language key for %s could not be generated: %s",
	KindStepRenderFailed:          "Next step of node %s could not be rendered: %s",
}

// RenderError is one structured problem with its contextual parameters
type RenderError struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Params   []string `json:"params,omitempty"`
	Message  string   `json:"message"`
}

func (e RenderError) Error() string {
	return e.Message
}

func newRenderError(kind Kind, sev Severity, params []string) RenderError {
	format, ok := messages[kind]
	var msg string
	if ok {
		n := strings.Count(format, "%s")
		args := make([]any, 0, n)
		for i := 0; i < n; i++ {
			if i < len(params) {
				args = append(args, params[i])
			} else {
				args = append(args, "?")
			}
		}
		msg = fmt.Sprintf(format, args...)
	} else {
		msg = string(kind) + ": " + strings.Join(params, ", ")
	}
	return RenderError{Kind: kind, Severity: sev, Params: params, Message: msg}
}

// Collector accumulates problems of one render call. It is append-only and never fails.
type Collector struct {
	errs []RenderError
}

// New creates an empty collector
func New() *Collector {
	return &Collector{}
}

// Add records an error-class problem
func (c *Collector) Add(kind Kind, params ...string) {
	c.errs = append(c.errs, newRenderError(kind, SeverityError, params))
}

// AddWarning records a suspicious but allowed construct
func (c *Collector) AddWarning(kind Kind, params ...string) {
	c.errs = append(c.errs, newRenderError(kind, SeverityWarning, params))
}

// HasErrors reports whether anything was recorded
func (c *Collector) HasErrors() bool {
	return len(c.errs) > 0
}

// Len returns the number of recorded problems
func (c *Collector) Len() int {
	return len(c.errs)
}

// All returns a copy of the recorded problems in insertion order
func (c *Collector) All() []RenderError {
	out := make([]RenderError, len(c.errs))
	copy(out, c.errs)
	return out
}

// Count returns the number of problems of the given severity
func (c *Collector) Count(sev Severity) int {
	n := 0
	for _, e := range c.errs {
		if e.Severity == sev {
			n++
		}
	}
	return n
}
