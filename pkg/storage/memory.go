package storage

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// MemoryStorage is an in-memory Store. It counts calls per method so callers can
// assert how often the pipeline reached the backing store.
type MemoryStorage struct {
	mu         sync.RWMutex
	defaults   *Defaults
	configs    map[string]*project.Config
	npcs       map[string]*project.Npc
	items      map[string]*project.Item
	skills     map[string]*project.Skill
	quests     map[string]*project.Quest
	markers    map[string]*project.MapMarker
	templates  map[string]*templates.Template
	conditions map[string]*conditions.StoredSet
	calls      map[string]int
	pingError  error
}

// Ensure MemoryStorage implements Store interface
var _ Store = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty store reading bundled defaults from fsys.
// fsys may be nil when no defaults are needed.
func NewMemoryStorage(fsys fs.FS) *MemoryStorage {
	m := &MemoryStorage{
		configs:    make(map[string]*project.Config),
		npcs:       make(map[string]*project.Npc),
		items:      make(map[string]*project.Item),
		skills:     make(map[string]*project.Skill),
		quests:     make(map[string]*project.Quest),
		markers:    make(map[string]*project.MapMarker),
		templates:  make(map[string]*templates.Template),
		conditions: make(map[string]*conditions.StoredSet),
		calls:      make(map[string]int),
	}
	if fsys != nil {
		m.defaults = NewDefaults(fsys)
	}
	return m
}

// CallCount returns how many times the named method was called
func (m *MemoryStorage) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// TotalCalls returns the number of lookups across all methods
func (m *MemoryStorage) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MemoryStorage) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

// SetPingError configures Ping to fail with err; nil restores success
func (m *MemoryStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStorage) Close() error {
	return nil
}

// Seed loads every object of a fixture
func (m *MemoryStorage) Seed(f *Fixture) error {
	if f.Config != nil {
		m.PutConfig(f.Config)
	}
	for i := range f.Npcs {
		m.PutNpc(&f.Npcs[i])
	}
	for i := range f.Items {
		m.PutItem(&f.Items[i])
	}
	for i := range f.Skills {
		m.PutSkill(&f.Skills[i])
	}
	for i := range f.Quests {
		m.PutQuest(&f.Quests[i])
	}
	for i := range f.Markers {
		m.PutMarker(&f.Markers[i])
	}
	for i := range f.Templates {
		tmpl := f.Templates[i]
		if tmpl.ProjectID == "" {
			tmpl.ProjectID = f.ProjectID
		}
		if err := m.SaveTemplate(context.Background(), &tmpl); err != nil {
			return err
		}
	}
	if f.Conditions != nil {
		if err := m.SaveGenerationConditionSet(context.Background(), f.ProjectID, f.Conditions); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStorage) PutConfig(cfg *project.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.ProjectID] = cfg
}

func (m *MemoryStorage) PutNpc(n *project.Npc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.npcs[n.ID] = n
}

func (m *MemoryStorage) PutItem(i *project.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[i.ID] = i
}

func (m *MemoryStorage) PutSkill(s *project.Skill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills[s.ID] = s
}

func (m *MemoryStorage) PutQuest(q *project.Quest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quests[q.ID] = q
}

func (m *MemoryStorage) PutMarker(mk *project.MapMarker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[markerKey(mk.MapID, mk.MarkerID)] = mk
}

func (m *MemoryStorage) GetProjectConfig(ctx context.Context, projectID string) (*project.Config, error) {
	m.record("GetProjectConfig")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configs[projectID], nil
}

func (m *MemoryStorage) GetNpc(ctx context.Context, id string) (*project.Npc, error) {
	m.record("GetNpc")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.npcs[id], nil
}

func (m *MemoryStorage) GetPlayerNpc(ctx context.Context, projectID string) (*project.Npc, error) {
	m.record("GetPlayerNpc")
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.npcs {
		if n.IsPlayer && n.ProjectID == projectID {
			return n, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) GetItem(ctx context.Context, id string) (*project.Item, error) {
	m.record("GetItem")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[id], nil
}

func (m *MemoryStorage) GetSkill(ctx context.Context, id string) (*project.Skill, error) {
	m.record("GetSkill")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.skills[id], nil
}

func (m *MemoryStorage) GetQuest(ctx context.Context, id string) (*project.Quest, error) {
	m.record("GetQuest")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quests[id], nil
}

func (m *MemoryStorage) GetMarker(ctx context.Context, mapID, markerID string) (*project.MapMarker, error) {
	m.record("GetMarker")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.markers[markerKey(mapID, markerID)], nil
}

func (m *MemoryStorage) GetDailyRoutineEvent(ctx context.Context, npcID, eventID string) (*project.DailyRoutineEvent, error) {
	m.record("GetDailyRoutineEvent")
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.npcs[npcID]
	if !ok {
		return nil, nil
	}
	ev, _ := n.RoutineEvent(eventID)
	return ev, nil
}

func (m *MemoryStorage) GetTemplateByType(ctx context.Context, projectID string, t templates.Type) (*templates.Template, error) {
	m.record("GetTemplateByType")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.templates[TemplateKey(projectID, "", t)], nil
}

func (m *MemoryStorage) GetCustomizedTemplate(ctx context.Context, projectID, objectID string, t templates.Type) (*templates.Template, error) {
	m.record("GetCustomizedTemplate")
	if objectID == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.templates[TemplateKey(projectID, objectID, t)], nil
}

// SaveTemplate replaces any template stored for the same project, object and type
func (m *MemoryStorage) SaveTemplate(ctx context.Context, tmpl *templates.Template) error {
	if tmpl == nil {
		return errors.New("template cannot be nil")
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.Category == "" {
		tmpl.Category, _ = templates.CategoryOf(tmpl.Type)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[TemplateKey(tmpl.ProjectID, tmpl.CustomizedObjectID, tmpl.Type)] = tmpl
	return nil
}

func (m *MemoryStorage) GetDefaultTemplateBody(ctx context.Context, category templates.Category, t templates.Type) (string, error) {
	m.record("GetDefaultTemplateBody")
	if m.defaults == nil {
		return "", ErrDefaultTemplateMissing
	}
	return m.defaults.TemplateBody(category, t)
}

func (m *MemoryStorage) GetGenerationConditionSet(ctx context.Context, projectID string) (*conditions.StoredSet, error) {
	m.record("GetGenerationConditionSet")
	m.mu.RLock()
	set, ok := m.conditions[projectID]
	m.mu.RUnlock()
	if ok {
		return set, nil
	}
	if m.defaults == nil {
		return nil, nil
	}
	return m.defaults.ConditionSet()
}

// SaveGenerationConditionSet replaces the project's set after validating it
func (m *MemoryStorage) SaveGenerationConditionSet(ctx context.Context, projectID string, set *conditions.StoredSet) error {
	if set == nil {
		return errors.New("generation condition set cannot be nil")
	}
	if err := conditions.ValidateSet(set); err != nil {
		return err
	}
	set.ProjectID = projectID
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions[projectID] = set
	return nil
}

// TemplateKey identifies a stored template; customized templates include their object id
func TemplateKey(projectID, objectID string, t templates.Type) string {
	if objectID == "" {
		return projectID + ":" + string(t)
	}
	return projectID + ":" + string(t) + ":" + objectID
}

func markerKey(mapID, markerID string) string {
	return mapID + ":" + markerID
}
