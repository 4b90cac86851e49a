package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/project"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// Fixture is a whole project described in one YAML document. Keys follow the
// JSON field names of the domain types.
type Fixture struct {
	ProjectID  string                `json:"project_id"`
	Config     *project.Config       `json:"config,omitempty"`
	Npcs       []project.Npc         `json:"npcs,omitempty"`
	Items      []project.Item        `json:"items,omitempty"`
	Skills     []project.Skill       `json:"skills,omitempty"`
	Quests     []project.Quest       `json:"quests,omitempty"`
	Markers    []project.MapMarker   `json:"markers,omitempty"`
	Templates  []templates.Template  `json:"templates,omitempty"`
	Conditions *conditions.StoredSet `json:"generation_conditions,omitempty"`
	Dialogs    []*dialog.Graph       `json:"dialogs,omitempty"`
}

// Dialog returns the dialog graph with the given id
func (f *Fixture) Dialog(id string) (*dialog.Graph, bool) {
	for _, g := range f.Dialogs {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// LoadFixtureFile reads a fixture from a YAML file
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture decodes YAML into a generic document and re-decodes it as JSON, so
// node data stays raw JSON and dialog graphs build their indexes.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	for i := range f.Npcs {
		if f.Npcs[i].ProjectID == "" {
			f.Npcs[i].ProjectID = f.ProjectID
		}
	}
	if f.Config != nil && f.Config.ProjectID == "" {
		f.Config.ProjectID = f.ProjectID
	}
	return &f, nil
}
