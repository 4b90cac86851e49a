package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/templates"
)

var ErrDefaultTemplateMissing = errors.New("default template missing")

// DefaultConditionSetPath is the location of the bundled generation condition set
const DefaultConditionSetPath = "conditions/default_generation_conditions.json"

// Defaults reads the bundled default templates and condition set from a data directory:
//
//	templates/{Category}/{Type}.lua
//	templates/Language/LanguageFile.ini
//	conditions/default_generation_conditions.json
type Defaults struct {
	fsys fs.FS
}

// NewDefaults reads defaults from fsys, usually os.DirFS(dataDir)
func NewDefaults(fsys fs.FS) *Defaults {
	return &Defaults{fsys: fsys}
}

// TemplateBody returns the bundled default body of a template type
func (d *Defaults) TemplateBody(category templates.Category, t templates.Type) (string, error) {
	p := path.Join("templates", templates.DefaultPath(category, t))
	data, err := fs.ReadFile(d.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDefaultTemplateMissing, p)
		}
		return "", fmt.Errorf("failed to read default template %s: %w", p, err)
	}
	return string(data), nil
}

// ConditionSet returns the bundled default generation condition set
func (d *Defaults) ConditionSet() (*conditions.StoredSet, error) {
	data, err := fs.ReadFile(d.fsys, DefaultConditionSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read default generation conditions: %w", err)
	}
	var set conditions.StoredSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default generation conditions: %w", err)
	}
	return &set, nil
}
