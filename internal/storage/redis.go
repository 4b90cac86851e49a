package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/storage"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// RedisStorage implements the Store interface using Redis for project documents
// and the filesystem for the bundled defaults
type RedisStorage struct {
	client   *redis.Client
	logger   *slog.Logger
	defaults *storage.Defaults
}

// Ensure RedisStorage implements Store interface
var _ storage.Store = (*RedisStorage)(nil)

// NewRedisClient creates a client for redisURL, either a redis:// URL or a plain
// host:port address
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		opt, err = redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
	}
	return redis.NewClient(opt), nil
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) (*RedisStorage, error) {
	rdb, err := NewRedisClient(redisURL)
	if err != nil {
		return nil, err
	}

	if dataDir == "" {
		dataDir = "./data"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisStorage{
		client:   rdb,
		logger:   logger,
		defaults: storage.NewDefaults(os.DirFS(dataDir)),
	}, nil
}

// Key layout
func configKey(projectID string) string       { return "config:" + projectID }
func npcKey(id string) string                 { return "npc:" + id }
func playerKey(projectID string) string       { return "player:" + projectID }
func itemKey(id string) string                { return "item:" + id }
func skillKey(id string) string               { return "skill:" + id }
func questKey(id string) string               { return "quest:" + id }
func markerKey(mapID, markerID string) string { return "marker:" + mapID + ":" + markerID }
func conditionsKey(projectID string) string   { return "conditions:" + projectID }
func templateKey(projectID, objectID string, t templates.Type) string {
	return "template:" + storage.TemplateKey(projectID, objectID, t)
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// getJSON loads the document at key into a new T. A missing key returns nil, nil.
func getJSON[T any](ctx context.Context, r *RedisStorage, key string) (*T, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load document", "key", key, "error", err)
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Error("Failed to unmarshal document", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return &v, nil
}

func (r *RedisStorage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save document", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Domain objects

func (r *RedisStorage) GetProjectConfig(ctx context.Context, projectID string) (*project.Config, error) {
	return getJSON[project.Config](ctx, r, configKey(projectID))
}

func (r *RedisStorage) SaveProjectConfig(ctx context.Context, projectID string, cfg *project.Config) error {
	return r.setJSON(ctx, configKey(projectID), cfg)
}

func (r *RedisStorage) GetNpc(ctx context.Context, id string) (*project.Npc, error) {
	return getJSON[project.Npc](ctx, r, npcKey(id))
}

// GetPlayerNpc follows the player index written by SaveNpc
func (r *RedisStorage) GetPlayerNpc(ctx context.Context, projectID string) (*project.Npc, error) {
	id, err := r.client.Get(ctx, playerKey(projectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load player of project %s: %w", projectID, err)
	}
	return r.GetNpc(ctx, id)
}

// SaveNpc stores an NPC and, for the player, indexes it under its project
func (r *RedisStorage) SaveNpc(ctx context.Context, n *project.Npc) error {
	if err := r.setJSON(ctx, npcKey(n.ID), n); err != nil {
		return err
	}
	if !n.IsPlayer {
		return nil
	}
	if err := r.client.Set(ctx, playerKey(n.ProjectID), n.ID, 0).Err(); err != nil {
		return fmt.Errorf("failed to index player of project %s: %w", n.ProjectID, err)
	}
	return nil
}

func (r *RedisStorage) GetItem(ctx context.Context, id string) (*project.Item, error) {
	return getJSON[project.Item](ctx, r, itemKey(id))
}

func (r *RedisStorage) SaveItem(ctx context.Context, i *project.Item) error {
	return r.setJSON(ctx, itemKey(i.ID), i)
}

func (r *RedisStorage) GetSkill(ctx context.Context, id string) (*project.Skill, error) {
	return getJSON[project.Skill](ctx, r, skillKey(id))
}

func (r *RedisStorage) SaveSkill(ctx context.Context, s *project.Skill) error {
	return r.setJSON(ctx, skillKey(s.ID), s)
}

func (r *RedisStorage) GetQuest(ctx context.Context, id string) (*project.Quest, error) {
	return getJSON[project.Quest](ctx, r, questKey(id))
}

func (r *RedisStorage) SaveQuest(ctx context.Context, q *project.Quest) error {
	return r.setJSON(ctx, questKey(q.ID), q)
}

func (r *RedisStorage) GetMarker(ctx context.Context, mapID, markerID string) (*project.MapMarker, error) {
	return getJSON[project.MapMarker](ctx, r, markerKey(mapID, markerID))
}

func (r *RedisStorage) SaveMarker(ctx context.Context, m *project.MapMarker) error {
	return r.setJSON(ctx, markerKey(m.MapID, m.MarkerID), m)
}

// GetDailyRoutineEvent looks the event up on the stored NPC
func (r *RedisStorage) GetDailyRoutineEvent(ctx context.Context, npcID, eventID string) (*project.DailyRoutineEvent, error) {
	n, err := r.GetNpc(ctx, npcID)
	if err != nil || n == nil {
		return nil, err
	}
	ev, _ := n.RoutineEvent(eventID)
	return ev, nil
}

// Templates

func (r *RedisStorage) GetTemplateByType(ctx context.Context, projectID string, t templates.Type) (*templates.Template, error) {
	return getJSON[templates.Template](ctx, r, templateKey(projectID, "", t))
}

func (r *RedisStorage) GetCustomizedTemplate(ctx context.Context, projectID, objectID string, t templates.Type) (*templates.Template, error) {
	if objectID == "" {
		return nil, nil
	}
	return getJSON[templates.Template](ctx, r, templateKey(projectID, objectID, t))
}

// SaveTemplate replaces any template stored for the same project, object and type
func (r *RedisStorage) SaveTemplate(ctx context.Context, tmpl *templates.Template) error {
	if tmpl == nil {
		return errors.New("template cannot be nil")
	}
	if _, ok := templates.CategoryOf(tmpl.Type); !ok {
		return fmt.Errorf("unknown template type %q", tmpl.Type)
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.Category == "" {
		tmpl.Category, _ = templates.CategoryOf(tmpl.Type)
	}
	return r.setJSON(ctx, templateKey(tmpl.ProjectID, tmpl.CustomizedObjectID, tmpl.Type), tmpl)
}

func (r *RedisStorage) GetDefaultTemplateBody(ctx context.Context, category templates.Category, t templates.Type) (string, error) {
	return r.defaults.TemplateBody(category, t)
}

// Generation conditions

// GetGenerationConditionSet returns the project's set, or the bundled default
func (r *RedisStorage) GetGenerationConditionSet(ctx context.Context, projectID string) (*conditions.StoredSet, error) {
	set, err := getJSON[conditions.StoredSet](ctx, r, conditionsKey(projectID))
	if err != nil || set != nil {
		return set, err
	}
	r.logger.Debug("Using default generation conditions", "project_id", projectID)
	return r.defaults.ConditionSet()
}

func (r *RedisStorage) SaveGenerationConditionSet(ctx context.Context, projectID string, set *conditions.StoredSet) error {
	if set == nil {
		return errors.New("generation condition set cannot be nil")
	}
	if err := conditions.ValidateSet(set); err != nil {
		return err
	}
	set.ProjectID = projectID
	return r.setJSON(ctx, conditionsKey(projectID), set)
}

// Import writes every document of a fixture, replacing existing ones
func (r *RedisStorage) Import(ctx context.Context, f *storage.Fixture) error {
	if f.Config != nil {
		if err := r.SaveProjectConfig(ctx, f.ProjectID, f.Config); err != nil {
			return err
		}
	}
	for i := range f.Npcs {
		if err := r.SaveNpc(ctx, &f.Npcs[i]); err != nil {
			return err
		}
	}
	for i := range f.Items {
		if err := r.SaveItem(ctx, &f.Items[i]); err != nil {
			return err
		}
	}
	for i := range f.Skills {
		if err := r.SaveSkill(ctx, &f.Skills[i]); err != nil {
			return err
		}
	}
	for i := range f.Quests {
		if err := r.SaveQuest(ctx, &f.Quests[i]); err != nil {
			return err
		}
	}
	for i := range f.Markers {
		if err := r.SaveMarker(ctx, &f.Markers[i]); err != nil {
			return err
		}
	}
	for i := range f.Templates {
		tmpl := f.Templates[i]
		if tmpl.ProjectID == "" {
			tmpl.ProjectID = f.ProjectID
		}
		if err := r.SaveTemplate(ctx, &tmpl); err != nil {
			return err
		}
	}
	if f.Conditions != nil {
		if err := r.SaveGenerationConditionSet(ctx, f.ProjectID, f.Conditions); err != nil {
			return err
		}
	}
	r.logger.Info("Imported fixture", "project_id", f.ProjectID, "npcs", len(f.Npcs), "templates", len(f.Templates))
	return nil
}
