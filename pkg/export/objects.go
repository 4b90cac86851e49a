package export

import (
	"context"
	"fmt"

	"github.com/jwebster45206/story-export/pkg/binding"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// RenderObject renders the script of a game object with its Object template.
// objectID is ignored for ObjectPlayer, which always renders the project's player.
func (p *Pass) RenderObject(ctx context.Context, t templates.Type, objectID string) (Result, error) {
	cfg, err := p.data.ProjectConfig(ctx, p.projectID)
	if err != nil {
		return Result{}, err
	}
	b := binding.New(cfg)
	c := exporterr.New()
	data := map[string]any{}

	switch t {
	case templates.ObjectNpc:
		npc, err := p.data.Npc(ctx, objectID)
		if err != nil {
			return Result{}, err
		}
		if npc == nil {
			c.Add(exporterr.KindNpcNotFound, objectID)
			return result("", c), nil
		}
		data["Npc"] = b.Npc(npc)
	case templates.ObjectPlayer:
		player, err := p.data.PlayerNpc(ctx, p.projectID)
		if err != nil {
			return Result{}, err
		}
		if player == nil {
			c.Add(exporterr.KindNoPlayerNpc, p.projectID)
			return result("", c), nil
		}
		objectID = player.ID
		data["Player"] = b.Npc(player)
	case templates.ObjectItem:
		item, err := p.data.Item(ctx, objectID)
		if err != nil {
			return Result{}, err
		}
		if item == nil {
			c.Add(exporterr.KindItemNotFound, objectID)
			return result("", c), nil
		}
		data["Item"] = b.Object(&item.FlexFieldObject)
	case templates.ObjectSkill:
		skill, err := p.data.Skill(ctx, objectID)
		if err != nil {
			return Result{}, err
		}
		if skill == nil {
			c.Add(exporterr.KindSkillNotFound, objectID)
			return result("", c), nil
		}
		data["Skill"] = b.Object(&skill.FlexFieldObject)
	default:
		return Result{}, fmt.Errorf("%s is not an object template type", t)
	}

	tmpl, err := p.data.Template(ctx, p.projectID, objectID, t)
	if err != nil {
		return Result{}, err
	}
	text, err := p.substitute(ctx, tmpl, data, c, nil)
	if err != nil {
		return Result{}, err
	}
	return result(text, c), nil
}
