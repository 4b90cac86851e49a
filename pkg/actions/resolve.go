package actions

import (
	"context"

	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/project"
)

// resolved holds the entities of one action after lookup
type resolved struct {
	npc       *project.Npc
	player    *project.Npc
	chooseNpc *project.Npc
	item      *project.Item
	quest     *project.Quest
	skill     *project.Skill
	marker    *project.MapMarker
	event     *project.DailyRoutineEvent
	field     project.FlexField
}

// resolve looks up every entity the shape needs. Each missing entity is recorded and
// resolution carries on, so one render reports all of them. ok is false when anything
// is missing; the returned error is a store failure.
func resolve(ctx context.Context, s shape, p Params, env Env) (r resolved, ok bool, err error) {
	ok = true
	fail := func(kind exporterr.Kind, params ...string) {
		env.Errors.Add(kind, params...)
		ok = false
	}

	if s.has(refNpc) {
		id := env.dialogNpcID()
		if r.npc, err = env.Data.Npc(ctx, id); err != nil {
			return r, false, err
		}
		if r.npc == nil {
			fail(exporterr.KindNpcNotFound, id)
		}
	}
	if s.has(refPlayer) {
		if r.player, err = env.Data.PlayerNpc(ctx, env.ProjectID); err != nil {
			return r, false, err
		}
		if r.player == nil {
			fail(exporterr.KindNoPlayerNpc, env.ProjectID)
		}
	}
	if s.has(refChooseNpc) {
		if r.chooseNpc, err = env.Data.Npc(ctx, p.NpcID); err != nil {
			return r, false, err
		}
		if r.chooseNpc == nil {
			fail(exporterr.KindNpcNotFound, p.NpcID)
		}
	}
	if s.has(refItem) {
		if r.item, err = env.Data.Item(ctx, p.ItemID); err != nil {
			return r, false, err
		}
		if r.item == nil {
			fail(exporterr.KindItemNotFound, p.ItemID)
		}
	}
	if s.has(refQuest) {
		if r.quest, err = env.Data.Quest(ctx, p.QuestID); err != nil {
			return r, false, err
		}
		if r.quest == nil {
			fail(exporterr.KindQuestNotFound, p.QuestID)
		}
	}
	if s.has(refSkill) {
		if r.skill, err = env.Data.Skill(ctx, p.SkillID); err != nil {
			return r, false, err
		}
		if r.skill == nil {
			fail(exporterr.KindSkillNotFound, p.SkillID)
		}
	}
	if s.has(refMarker) {
		if r.marker, err = env.Data.Marker(ctx, p.MapID, p.MarkerID); err != nil {
			return r, false, err
		}
		if r.marker == nil {
			fail(exporterr.KindMarkerNotFound, p.MarkerID, p.MapID)
		}
	}
	// the event belongs to the chosen NPC and is only looked up once it exists
	if s.has(refEvent) && r.chooseNpc != nil {
		if r.event, err = env.Data.DailyRoutineEvent(ctx, r.chooseNpc.ID, p.EventID); err != nil {
			return r, false, err
		}
		if r.event == nil {
			fail(exporterr.KindDailyRoutineEventNotFound, p.EventID, r.chooseNpc.Name)
		}
	}

	if s.with(extraField) {
		if owner := r.fieldOwner(s.owner); owner != nil {
			f, found := owner.Field(p.FieldName)
			if !found {
				fail(exporterr.KindFlexFieldNotFound, p.FieldName, owner.Name)
			}
			r.field = f
		}
	}
	if s.compares() && !s.operators.allows(p.Operator) {
		fail(exporterr.KindUnknownOperator, p.Operator)
	}
	return r, ok, nil
}

func (r *resolved) fieldOwner(owner ref) *project.FlexFieldObject {
	switch owner {
	case refNpc:
		if r.npc != nil {
			return &r.npc.FlexFieldObject
		}
	case refPlayer:
		if r.player != nil {
			return &r.player.FlexFieldObject
		}
	case refChooseNpc:
		if r.chooseNpc != nil {
			return &r.chooseNpc.FlexFieldObject
		}
	case refQuest:
		if r.quest != nil {
			return &r.quest.FlexFieldObject
		}
	}
	return nil
}
