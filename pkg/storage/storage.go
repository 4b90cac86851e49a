package storage

import (
	"context"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// TemplateStore persists templates and generation condition sets.
// Getters return nil, nil when nothing is stored.
type TemplateStore interface {
	GetTemplateByType(ctx context.Context, projectID string, t templates.Type) (*templates.Template, error)
	GetCustomizedTemplate(ctx context.Context, projectID, objectID string, t templates.Type) (*templates.Template, error)
	SaveTemplate(ctx context.Context, tmpl *templates.Template) error

	// GetDefaultTemplateBody reads the bundled default; a missing file is ErrDefaultTemplateMissing
	GetDefaultTemplateBody(ctx context.Context, category templates.Category, t templates.Type) (string, error)

	// GetGenerationConditionSet falls back to the bundled default set when the project has none
	GetGenerationConditionSet(ctx context.Context, projectID string) (*conditions.StoredSet, error)
	SaveGenerationConditionSet(ctx context.Context, projectID string, set *conditions.StoredSet) error
}

// DomainStore looks up the game objects referenced by dialogs.
// Getters return nil, nil when the object does not exist.
type DomainStore interface {
	GetProjectConfig(ctx context.Context, projectID string) (*project.Config, error)
	GetNpc(ctx context.Context, id string) (*project.Npc, error)
	GetPlayerNpc(ctx context.Context, projectID string) (*project.Npc, error)
	GetItem(ctx context.Context, id string) (*project.Item, error)
	GetSkill(ctx context.Context, id string) (*project.Skill, error)
	GetQuest(ctx context.Context, id string) (*project.Quest, error)
	GetMarker(ctx context.Context, mapID, markerID string) (*project.MapMarker, error)
	GetDailyRoutineEvent(ctx context.Context, npcID, eventID string) (*project.DailyRoutineEvent, error)
}

// Store combines everything the export pipeline reads
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	TemplateStore
	DomainStore
}
