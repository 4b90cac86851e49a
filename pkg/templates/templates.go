package templates

import (
	"path"
	"sort"
)

// Category groups template types
type Category string

const (
	CategoryObject   Category = "Object"
	CategoryDialog   Category = "Dialog"
	CategoryGeneral  Category = "General"
	CategoryLanguage Category = "Language"
)

// Engine selects the substitution engine a template body is written for
type Engine string

const (
	EngineLegacy  Engine = "Legacy"
	EngineGeneral Engine = "General"
)

// Type discriminates templates
type Type string

// Template is a stored template. A template with a CustomizedObjectID applies to that
// object only; otherwise it is the project default for its type.
type Template struct {
	ID                 string   `json:"id"`
	ProjectID          string   `json:"project_id"`
	Category           Category `json:"category"`
	Type               Type     `json:"type"`
	Code               string   `json:"code"`
	Engine             Engine   `json:"rendering_engine"`
	CustomizedObjectID string   `json:"customized_object_id,omitempty"`
}

// IsCustomized reports whether the template is bound to one object
func (t *Template) IsCustomized() bool {
	return t.CustomizedObjectID != ""
}

// Placeholder describes a token available to a template type
type Placeholder struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Token       string `json:"token"` // engine-specific syntax to insert
}

// Condition template types are used by condition nodes; action types by action nodes
const (
	ObjectNpc    Type = "ObjectNpc"
	ObjectPlayer Type = "ObjectPlayer"
	ObjectItem   Type = "ObjectItem"
	ObjectSkill  Type = "ObjectSkill"

	DialogFunction Type = "DialogFunction"
	DialogStep     Type = "DialogStep"
	NpcText        Type = "NpcText"
	PlayerText     Type = "PlayerText"
	Choice         Type = "Choice"
	Condition      Type = "Condition"

	LanguageKey  Type = "LanguageKey"
	LanguageFile Type = "LanguageFile"

	ChangePlayerValue              Type = "ChangePlayerValue"
	ChangeTargetNpcValue           Type = "ChangeTargetNpcValue"
	ChangeChooseNpcValue           Type = "ChangeChooseNpcValue"
	ChangeQuestValue               Type = "ChangeQuestValue"
	SpawnItemInPlayerInventory     Type = "SpawnItemInPlayerInventory"
	SpawnItemInNpcInventory        Type = "SpawnItemInNpcInventory"
	SpawnItemInChooseNpcInventory  Type = "SpawnItemInChooseNpcInventory"
	TransferItemToPlayerInventory  Type = "TransferItemToPlayerInventory"
	TransferItemToNpcInventory     Type = "TransferItemToNpcInventory"
	RemoveItemFromPlayerInventory  Type = "RemoveItemFromPlayerInventory"
	RemoveItemFromNpcInventory     Type = "RemoveItemFromNpcInventory"
	UsePlayerItem                  Type = "UsePlayerItem"
	UseNpcItem                     Type = "UseNpcItem"
	SetQuestState                  Type = "SetQuestState"
	AddQuestText                   Type = "AddQuestText"
	PlayerLearnSkill               Type = "PlayerLearnSkill"
	PlayerForgetSkill              Type = "PlayerForgetSkill"
	NpcLearnSkill                  Type = "NpcLearnSkill"
	NpcForgetSkill                 Type = "NpcForgetSkill"
	MoveNpcToMarker                Type = "MoveNpcToMarker"
	MoveChooseNpcToMarker          Type = "MoveChooseNpcToMarker"
	MovePlayerToMarker             Type = "MovePlayerToMarker"
	WalkNpcToNpc                   Type = "WalkNpcToNpc"
	TeleportNpcToMarker            Type = "TeleportNpcToMarker"
	TeleportPlayerToMarker         Type = "TeleportPlayerToMarker"
	TeleportChooseNpcToMarker      Type = "TeleportChooseNpcToMarker"
	SpawnNpcAtMarker               Type = "SpawnNpcAtMarker"
	SpawnItemAtMarker              Type = "SpawnItemAtMarker"
	PlayNpcAnimation               Type = "PlayNpcAnimation"
	PlayPlayerAnimation            Type = "PlayPlayerAnimation"
	PlayChooseNpcAnimation         Type = "PlayChooseNpcAnimation"
	ShowFloatingTextAboveNpc       Type = "ShowFloatingTextAboveNpc"
	ShowFloatingTextAbovePlayer    Type = "ShowFloatingTextAbovePlayer"
	ShowFloatingTextAboveChooseNpc Type = "ShowFloatingTextAboveChooseNpc"
	Wait                           Type = "Wait"
	SetGameTime                    Type = "SetGameTime"
	SetDailyRoutineEventState      Type = "SetDailyRoutineEventState"
	CodeAction                     Type = "CodeAction"
	FadeToBlack                    Type = "FadeToBlack"
	FadeFromBlack                  Type = "FadeFromBlack"
	PersistDialogState             Type = "PersistDialogState"
	SetNpcState                    Type = "SetNpcState"
	SetPlayerState                 Type = "SetPlayerState"

	CheckQuestState             Type = "CheckQuestState"
	CheckNpcAlive               Type = "CheckNpcAlive"
	CheckPlayerValue            Type = "CheckPlayerValue"
	CheckNpcValue               Type = "CheckNpcValue"
	CheckPlayerInventory        Type = "CheckPlayerInventory"
	CheckNpcInventory           Type = "CheckNpcInventory"
	CheckGameTime               Type = "CheckGameTime"
	CheckPlayerSkill            Type = "CheckPlayerSkill"
	CheckDailyRoutineEventState Type = "CheckDailyRoutineEventState"
)

var catalog = map[Type]Category{
	ObjectNpc:    CategoryObject,
	ObjectPlayer: CategoryObject,
	ObjectItem:   CategoryObject,
	ObjectSkill:  CategoryObject,

	DialogFunction: CategoryDialog,
	DialogStep:     CategoryDialog,
	NpcText:        CategoryDialog,
	PlayerText:     CategoryDialog,
	Choice:         CategoryDialog,
	Condition:      CategoryDialog,

	LanguageKey:  CategoryGeneral,
	LanguageFile: CategoryLanguage,

	ChangePlayerValue:              CategoryDialog,
	ChangeTargetNpcValue:           CategoryDialog,
	ChangeChooseNpcValue:           CategoryDialog,
	ChangeQuestValue:               CategoryDialog,
	SpawnItemInPlayerInventory:     CategoryDialog,
	SpawnItemInNpcInventory:        CategoryDialog,
	SpawnItemInChooseNpcInventory:  CategoryDialog,
	TransferItemToPlayerInventory:  CategoryDialog,
	TransferItemToNpcInventory:     CategoryDialog,
	RemoveItemFromPlayerInventory:  CategoryDialog,
	RemoveItemFromNpcInventory:     CategoryDialog,
	UsePlayerItem:                  CategoryDialog,
	UseNpcItem:                     CategoryDialog,
	SetQuestState:                  CategoryDialog,
	AddQuestText:                   CategoryDialog,
	PlayerLearnSkill:               CategoryDialog,
	PlayerForgetSkill:              CategoryDialog,
	NpcLearnSkill:                  CategoryDialog,
	NpcForgetSkill:                 CategoryDialog,
	MoveNpcToMarker:                CategoryDialog,
	MoveChooseNpcToMarker:          CategoryDialog,
	MovePlayerToMarker:             CategoryDialog,
	WalkNpcToNpc:                   CategoryDialog,
	TeleportNpcToMarker:            CategoryDialog,
	TeleportPlayerToMarker:         CategoryDialog,
	TeleportChooseNpcToMarker:      CategoryDialog,
	SpawnNpcAtMarker:               CategoryDialog,
	SpawnItemAtMarker:              CategoryDialog,
	PlayNpcAnimation:               CategoryDialog,
	PlayPlayerAnimation:            CategoryDialog,
	PlayChooseNpcAnimation:         CategoryDialog,
	ShowFloatingTextAboveNpc:       CategoryDialog,
	ShowFloatingTextAbovePlayer:    CategoryDialog,
	ShowFloatingTextAboveChooseNpc: CategoryDialog,
	Wait:                           CategoryDialog,
	SetGameTime:                    CategoryDialog,
	SetDailyRoutineEventState:      CategoryDialog,
	CodeAction:                     CategoryDialog,
	FadeToBlack:                    CategoryDialog,
	FadeFromBlack:                  CategoryDialog,
	PersistDialogState:             CategoryDialog,
	SetNpcState:                    CategoryDialog,
	SetPlayerState:                 CategoryDialog,

	CheckQuestState:             CategoryDialog,
	CheckNpcAlive:               CategoryDialog,
	CheckPlayerValue:            CategoryDialog,
	CheckNpcValue:               CategoryDialog,
	CheckPlayerInventory:        CategoryDialog,
	CheckNpcInventory:           CategoryDialog,
	CheckGameTime:               CategoryDialog,
	CheckPlayerSkill:            CategoryDialog,
	CheckDailyRoutineEventState: CategoryDialog,
}

// CategoryOf returns the category of a known template type
func CategoryOf(t Type) (Category, bool) {
	c, ok := catalog[t]
	return c, ok
}

// All returns every known template type, sorted
func All() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultPath is the location of the bundled default body relative to the templates directory
func DefaultPath(category Category, t Type) string {
	ext := "lua"
	if category == CategoryLanguage {
		ext = "ini"
	}
	return path.Join(string(category), string(t)+"."+ext)
}
