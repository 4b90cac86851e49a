// Package exportcache memoizes store lookups for the duration of one export pass.
//
// An Access is created per pass and dropped when the pass ends. Entries are never
// invalidated while the pass runs, and not-found results are cached like any other.
// Failed lookups are not cached, so a later call retries.
package exportcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/storage"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// Access is the memoizing view of a store for one pass
type Access struct {
	store  storage.Store
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]any
	group  singleflight.Group
}

// New starts a fresh cache over store
func New(store storage.Store, logger *slog.Logger) *Access {
	if logger == nil {
		logger = slog.Default()
	}
	return &Access{
		store:  store,
		logger: logger,
		values: make(map[string]any),
	}
}

// Len returns the number of cached entries
func (a *Access) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

func (a *Access) cached(key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[key]
	return v, ok
}

// load returns the cached value for key, fetching it once. Concurrent callers of
// the same key share a single fetch.
func (a *Access) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := a.cached(key); ok {
		a.logger.Debug("export cache hit", "key", key)
		return v, nil
	}
	v, err, _ := a.group.Do(key, func() (any, error) {
		if v, ok := a.cached(key); ok {
			return v, nil
		}
		a.logger.Debug("export cache miss", "key", key)
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.values[key] = v
		a.mu.Unlock()
		return v, nil
	})
	return v, err
}

func get[T any](a *Access, ctx context.Context, key string, fetch func(context.Context) (*T, error)) (*T, error) {
	v, err := a.load(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	out, _ := v.(*T)
	return out, nil
}

// ProjectConfig returns the project's export settings, or the defaults when none are saved
func (a *Access) ProjectConfig(ctx context.Context, projectID string) (*project.Config, error) {
	return get(a, ctx, "config:"+projectID, func(ctx context.Context) (*project.Config, error) {
		cfg, err := a.store.GetProjectConfig(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project config: %w", err)
		}
		if cfg == nil {
			cfg = project.DefaultConfig(projectID)
		}
		return cfg, nil
	})
}

func (a *Access) Npc(ctx context.Context, id string) (*project.Npc, error) {
	return get(a, ctx, "npc:"+id, func(ctx context.Context) (*project.Npc, error) {
		return a.store.GetNpc(ctx, id)
	})
}

// PlayerNpc returns the project's player character, nil when the project has none
func (a *Access) PlayerNpc(ctx context.Context, projectID string) (*project.Npc, error) {
	return get(a, ctx, "player:"+projectID, func(ctx context.Context) (*project.Npc, error) {
		return a.store.GetPlayerNpc(ctx, projectID)
	})
}

func (a *Access) Item(ctx context.Context, id string) (*project.Item, error) {
	return get(a, ctx, "item:"+id, func(ctx context.Context) (*project.Item, error) {
		return a.store.GetItem(ctx, id)
	})
}

func (a *Access) Skill(ctx context.Context, id string) (*project.Skill, error) {
	return get(a, ctx, "skill:"+id, func(ctx context.Context) (*project.Skill, error) {
		return a.store.GetSkill(ctx, id)
	})
}

func (a *Access) Quest(ctx context.Context, id string) (*project.Quest, error) {
	return get(a, ctx, "quest:"+id, func(ctx context.Context) (*project.Quest, error) {
		return a.store.GetQuest(ctx, id)
	})
}

func (a *Access) Marker(ctx context.Context, mapID, markerID string) (*project.MapMarker, error) {
	return get(a, ctx, "marker:"+mapID+":"+markerID, func(ctx context.Context) (*project.MapMarker, error) {
		return a.store.GetMarker(ctx, mapID, markerID)
	})
}

func (a *Access) DailyRoutineEvent(ctx context.Context, npcID, eventID string) (*project.DailyRoutineEvent, error) {
	return get(a, ctx, "event:"+npcID+":"+eventID, func(ctx context.Context) (*project.DailyRoutineEvent, error) {
		return a.store.GetDailyRoutineEvent(ctx, npcID, eventID)
	})
}

// GenerationConditions returns the project's compiled generation condition set.
// A set that fails to compile is not cached.
func (a *Access) GenerationConditions(ctx context.Context, projectID string) (*conditions.Set, error) {
	return get(a, ctx, "conditions:"+projectID, func(ctx context.Context) (*conditions.Set, error) {
		stored, err := a.store.GetGenerationConditionSet(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load generation conditions: %w", err)
		}
		if stored == nil {
			return &conditions.Set{}, nil
		}
		return conditions.CompileSet(stored)
	})
}

// DefaultTemplateBody returns the bundled default body of a template type
func (a *Access) DefaultTemplateBody(ctx context.Context, category templates.Category, t templates.Type) (string, error) {
	body, err := get(a, ctx, "default:"+string(category)+"/"+string(t), func(ctx context.Context) (*string, error) {
		body, err := a.store.GetDefaultTemplateBody(ctx, category, t)
		if err != nil {
			return nil, err
		}
		return &body, nil
	})
	if err != nil {
		return "", err
	}
	return *body, nil
}

// Template resolves the template used for type t. Resolution order is the template
// customized for objectID, then the project template, then the bundled default,
// which always renders with the general engine.
func (a *Access) Template(ctx context.Context, projectID, objectID string, t templates.Type) (*templates.Template, error) {
	category, ok := templates.CategoryOf(t)
	if !ok {
		return nil, fmt.Errorf("unknown template type %q", t)
	}
	key := "template:" + storage.TemplateKey(projectID, objectID, t)
	return get(a, ctx, key, func(ctx context.Context) (*templates.Template, error) {
		if objectID != "" {
			tmpl, err := a.store.GetCustomizedTemplate(ctx, projectID, objectID, t)
			if err != nil {
				return nil, fmt.Errorf("failed to load customized template: %w", err)
			}
			if tmpl != nil {
				return tmpl, nil
			}
		}
		tmpl, err := a.store.GetTemplateByType(ctx, projectID, t)
		if err != nil {
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
		if tmpl != nil {
			return tmpl, nil
		}

		body, err := a.DefaultTemplateBody(ctx, category, t)
		if err != nil {
			return nil, err
		}
		a.logger.Warn("no stored template, using bundled default", "type", string(t))
		return &templates.Template{
			ProjectID: projectID,
			Category:  category,
			Type:      t,
			Code:      body,
			Engine:    templates.EngineGeneral,
		}, nil
	})
}
