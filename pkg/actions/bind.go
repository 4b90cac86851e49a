package actions

import (
	"strconv"
	"strings"

	"github.com/jwebster45206/story-export/pkg/binding"
	"github.com/jwebster45206/story-export/pkg/project"
)

// Keys of the bound data exposed to action templates
const (
	KeyNpc                    = "Npc"
	KeyPlayer                 = "Player"
	KeyChooseNpc              = "ChooseNpc"
	KeyItem                   = "Item"
	KeyQuest                  = "Quest"
	KeySkill                  = "Skill"
	KeyMarker                 = "Marker"
	KeyEvent                  = "Event"
	KeyField                  = "Field"
	KeyOperator               = "Operator"
	KeyValue                  = "Value"
	KeyUnescapedValue         = "UnescapedValue"
	KeyQuantity               = "Quantity"
	KeyQuestState             = "QuestState"
	KeyText                   = "Text"
	KeyUnescapedText          = "UnescapedText"
	KeyAnimation              = "Animation"
	KeyState                  = "State"
	KeyCode                   = "Code"
	KeyWaitType               = "WaitType"
	KeyWaitUnit               = "WaitUnit"
	KeyWaitAmount             = "WaitAmount"
	KeyHours                  = "Hours"
	KeyMinutes                = "Minutes"
	KeyTime                   = "Time"
	KeyEnabled                = "Enabled"
	KeyIsAlive                = "IsAlive"
	KeyHasLearned             = "HasLearned"
	KeyDuration               = "Duration"
	KeyHasDirectContinue      = "HasDirectContinue"
	KeyDirectContinueFunction = "DirectContinueFunction"
	KeyFunctionName           = "FunctionName"
	KeyNodeID                 = "NodeID"
)

// binder input for one action
type bindInput struct {
	shape          shape
	params         Params
	resolved       resolved
	directContinue string // function name of the direct continue child
	functionName   string
	nodeID         string
}

// bind builds the bound data and the preview arguments of an action. It only runs
// after resolution succeeded.
func bind(b *binding.Binder, in bindInput) (map[string]any, []string) {
	s, p, r := in.shape, in.params, in.resolved
	data := map[string]any{
		KeyFunctionName: in.functionName,
		KeyNodeID:       in.nodeID,
	}
	var preview []string

	if s.has(refNpc) {
		data[KeyNpc] = b.Npc(r.npc)
		preview = append(preview, r.npc.Name)
	}
	if s.has(refPlayer) {
		data[KeyPlayer] = b.Npc(r.player)
	}
	if s.has(refChooseNpc) {
		data[KeyChooseNpc] = b.Npc(r.chooseNpc)
		preview = append(preview, r.chooseNpc.Name)
	}
	if s.has(refItem) {
		data[KeyItem] = b.Object(&r.item.FlexFieldObject)
		preview = append(preview, r.item.Name)
	}
	if s.with(extraQuantity) {
		q := quantity(p.Quantity)
		data[KeyQuantity] = q
		preview = append(preview, q)
	}
	if s.has(refQuest) {
		data[KeyQuest] = b.Object(&r.quest.FlexFieldObject)
		preview = append(preview, r.quest.Name)
	}
	if s.has(refSkill) {
		data[KeySkill] = b.Object(&r.skill.FlexFieldObject)
		preview = append(preview, r.skill.Name)
	}
	if s.has(refMarker) {
		data[KeyMarker] = b.Marker(r.marker)
		preview = append(preview, r.marker.Name)
	}
	if s.has(refEvent) {
		data[KeyEvent] = b.Event(r.event)
		preview = append(preview, r.event.EventID)
	}

	if s.with(extraField) {
		data[KeyField] = b.Field(r.field)
		preview = append(preview, r.field.Name)
	}
	if s.compares() {
		data[KeyOperator] = p.Operator
		if !s.with(extraField) && !s.with(extraGameTime) {
			preview = append(preview, p.Operator)
		}
	}
	if s.with(extraField) {
		raw := p.Value.String()
		value := b.Escape(raw)
		if r.field.Type.IsNumeric() {
			value = binding.FormatNumber(raw)
		}
		data[KeyValue] = value
		data[KeyUnescapedValue] = raw
		preview = append(preview, p.Operator, raw)
	}

	if s.with(extraQuestState) {
		state := QuestStateToken(p.QuestState)
		data[KeyQuestState] = state
		preview = append(preview, state)
	}
	if s.with(extraText) {
		data[KeyText] = b.Escape(p.Text)
		data[KeyUnescapedText] = p.Text
		preview = append(preview, p.Text)
	}
	if s.with(extraAnimation) {
		data[KeyAnimation] = b.Escape(p.Animation)
		preview = append(preview, p.Animation)
	}
	if s.with(extraState) {
		data[KeyState] = b.Escape(p.State)
		if p.State != "" {
			preview = append(preview, p.State)
		}
	}
	if s.with(extraCode) {
		data[KeyCode] = p.Code
		preview = append(preview, firstLine(p.Code))
	}
	if s.with(extraWait) {
		wt, wu, amount := WaitTypeToken(p.WaitType), WaitUnitToken(p.WaitUnit), binding.FormatNumber(p.WaitAmount.String())
		data[KeyWaitType] = wt
		data[KeyWaitUnit] = wu
		data[KeyWaitAmount] = amount
		preview = append(preview, amount, wu, wt)
	}
	if s.with(extraGameTime) {
		t := gameTime(p.Hours, p.Minutes)
		data[KeyHours] = strconv.Itoa(t.Hours)
		data[KeyMinutes] = strconv.Itoa(t.Minutes)
		data[KeyTime] = binding.FormatTime(t)
		if s.compares() {
			preview = append(preview, p.Operator)
		}
		preview = append(preview, binding.FormatTime(t))
	}
	if s.with(extraEventState) {
		data[KeyEnabled] = p.Enabled
		preview = append(preview, strconv.FormatBool(p.Enabled))
	}
	if s.with(extraAlive) {
		alive := p.IsAlive == nil || *p.IsAlive
		data[KeyIsAlive] = alive
		preview = append(preview, strconv.FormatBool(alive))
	}
	if s.with(extraLearned) {
		learned := p.HasLearned == nil || *p.HasLearned
		data[KeyHasLearned] = learned
		preview = append(preview, strconv.FormatBool(learned))
	}
	if s.with(extraDuration) {
		d := binding.FormatNumber(p.Value.String())
		data[KeyDuration] = d
		preview = append(preview, d)
	}
	if s.with(extraDirectContinue) {
		data[KeyHasDirectContinue] = in.directContinue != ""
		data[KeyDirectContinueFunction] = in.directContinue
	}
	return data, preview
}

// previewText formats the human readable summary of an action
func previewText(actionType string, args []string) string {
	if len(args) == 0 {
		return actionType
	}
	return actionType + " (" + strings.Join(args, ", ") + ")"
}

func quantity(q Scalar) string {
	if strings.TrimSpace(q.String()) == "" {
		return "1"
	}
	return binding.FormatNumber(q.String())
}

func gameTime(hours, minutes Scalar) project.GameTime {
	h, _ := strconv.Atoi(strings.TrimSpace(hours.String()))
	m, _ := strconv.Atoi(strings.TrimSpace(minutes.String()))
	return project.GameTime{Hours: h, Minutes: m}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
