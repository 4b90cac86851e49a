package actions

import (
	"github.com/jwebster45206/story-export/pkg/templates"
)

// ref is an entity an action resolves before binding
type ref uint16

const (
	refNpc       ref = 1 << iota // NPC owning the dialog
	refPlayer                    // player NPC of the project
	refChooseNpc                 // NPC picked in the action data
	refItem
	refQuest
	refSkill
	refMarker
	refEvent // daily routine event of the chosen NPC
)

// extra is a group of action parameters bound next to the resolved entities
type extra uint32

const (
	extraField          extra = 1 << iota // flex field of the owner with operator and value
	extraQuantity                         // item quantity, 1 when not set
	extraQuestState                       // canonical quest state token
	extraText                             // localizable text
	extraAnimation                        // animation name
	extraState                            // movement or NPC state
	extraCode                             // raw script code, never escaped
	extraWait                             // wait type, unit and amount
	extraGameTime                         // hours and minutes
	extraEventState                       // enabled flag of a daily routine event
	extraDirectContinue                   // function called through the direct continue slot
	extraAlive                            // expected alive state
	extraLearned                          // expected learned state
	extraDuration                         // fade duration
)

// shape declares how an action or condition type is resolved and bound
type shape struct {
	refs      ref
	extras    extra
	owner     ref // entity holding the flex field, set with extraField
	operators operatorSet
}

func (s shape) has(r ref) bool    { return s.refs&r != 0 }
func (s shape) with(e extra) bool { return s.extras&e != 0 }
func (s shape) compares() bool    { return s.operators != noOperator }

var shapes = map[templates.Type]shape{
	templates.ChangePlayerValue:    {refs: refPlayer, extras: extraField, owner: refPlayer, operators: changeOperators},
	templates.ChangeTargetNpcValue: {refs: refNpc, extras: extraField, owner: refNpc, operators: changeOperators},
	templates.ChangeChooseNpcValue: {refs: refChooseNpc, extras: extraField, owner: refChooseNpc, operators: changeOperators},
	templates.ChangeQuestValue:     {refs: refQuest, extras: extraField, owner: refQuest, operators: changeOperators},

	templates.SpawnItemInPlayerInventory:    {refs: refPlayer | refItem, extras: extraQuantity},
	templates.SpawnItemInNpcInventory:       {refs: refNpc | refItem, extras: extraQuantity},
	templates.SpawnItemInChooseNpcInventory: {refs: refChooseNpc | refItem, extras: extraQuantity},
	templates.TransferItemToPlayerInventory: {refs: refNpc | refPlayer | refItem, extras: extraQuantity},
	templates.TransferItemToNpcInventory:    {refs: refPlayer | refNpc | refItem, extras: extraQuantity},
	templates.RemoveItemFromPlayerInventory: {refs: refPlayer | refItem, extras: extraQuantity},
	templates.RemoveItemFromNpcInventory:    {refs: refNpc | refItem, extras: extraQuantity},
	templates.UsePlayerItem:                 {refs: refPlayer | refItem},
	templates.UseNpcItem:                    {refs: refNpc | refItem},

	templates.SetQuestState: {refs: refQuest, extras: extraQuestState},
	templates.AddQuestText:  {refs: refQuest, extras: extraText},

	templates.PlayerLearnSkill:  {refs: refPlayer | refSkill},
	templates.PlayerForgetSkill: {refs: refPlayer | refSkill},
	templates.NpcLearnSkill:     {refs: refNpc | refSkill},
	templates.NpcForgetSkill:    {refs: refNpc | refSkill},

	templates.MoveNpcToMarker:           {refs: refNpc | refMarker, extras: extraState | extraDirectContinue},
	templates.MoveChooseNpcToMarker:     {refs: refChooseNpc | refMarker, extras: extraState | extraDirectContinue},
	templates.MovePlayerToMarker:        {refs: refPlayer | refMarker, extras: extraState | extraDirectContinue},
	templates.WalkNpcToNpc:              {refs: refNpc | refChooseNpc, extras: extraState | extraDirectContinue},
	templates.TeleportNpcToMarker:       {refs: refNpc | refMarker, extras: extraDirectContinue},
	templates.TeleportPlayerToMarker:    {refs: refPlayer | refMarker, extras: extraDirectContinue},
	templates.TeleportChooseNpcToMarker: {refs: refChooseNpc | refMarker, extras: extraDirectContinue},
	templates.SpawnNpcAtMarker:          {refs: refChooseNpc | refMarker},
	templates.SpawnItemAtMarker:         {refs: refItem | refMarker, extras: extraQuantity},

	templates.PlayNpcAnimation:       {refs: refNpc, extras: extraAnimation},
	templates.PlayPlayerAnimation:    {refs: refPlayer, extras: extraAnimation},
	templates.PlayChooseNpcAnimation: {refs: refChooseNpc, extras: extraAnimation},

	templates.ShowFloatingTextAboveNpc:       {refs: refNpc, extras: extraText},
	templates.ShowFloatingTextAbovePlayer:    {refs: refPlayer, extras: extraText},
	templates.ShowFloatingTextAboveChooseNpc: {refs: refChooseNpc, extras: extraText},

	templates.Wait:                      {extras: extraWait | extraDirectContinue},
	templates.SetGameTime:               {extras: extraGameTime},
	templates.SetDailyRoutineEventState: {refs: refChooseNpc | refEvent, extras: extraEventState},
	templates.CodeAction:                {extras: extraCode},
	templates.FadeToBlack:               {extras: extraDuration},
	templates.FadeFromBlack:             {extras: extraDuration},
	templates.PersistDialogState:        {},
	templates.SetNpcState:               {refs: refNpc, extras: extraState},
	templates.SetPlayerState:            {refs: refPlayer, extras: extraState},

	templates.CheckQuestState:             {refs: refQuest, extras: extraQuestState},
	templates.CheckNpcAlive:               {refs: refChooseNpc, extras: extraAlive},
	templates.CheckPlayerValue:            {refs: refPlayer, extras: extraField, owner: refPlayer, operators: checkOperators},
	templates.CheckNpcValue:               {refs: refNpc, extras: extraField, owner: refNpc, operators: checkOperators},
	templates.CheckPlayerInventory:        {refs: refPlayer | refItem, extras: extraQuantity, operators: checkOperators},
	templates.CheckNpcInventory:           {refs: refNpc | refItem, extras: extraQuantity, operators: checkOperators},
	templates.CheckGameTime:               {extras: extraGameTime, operators: checkOperators},
	templates.CheckPlayerSkill:            {refs: refPlayer | refSkill, extras: extraLearned},
	templates.CheckDailyRoutineEventState: {refs: refChooseNpc | refEvent, extras: extraEventState},
}
