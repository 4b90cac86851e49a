package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/templates"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <generation_conditions.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &ConditionSetValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// ConditionSetValidator collects every problem of a generation condition set file
type ConditionSetValidator struct {
	errors []string
}

func (v *ConditionSetValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	if filepath.Ext(filename) != ".json" {
		return fmt.Errorf("condition set file must have .json extension: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validate(filename, data)
}

func (v *ConditionSetValidator) validate(filename string, data []byte) error {
	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var set conditions.StoredSet
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&set); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if err := conditions.ValidateSet(&set); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			v.errors = append(v.errors, "  - "+strings.TrimPrefix(line, "invalid generation condition set: "))
		}
	}
	for i, rule := range set.Generate {
		v.validateValues(fmt.Sprintf("generate_rules[%d]", i), rule)
	}
	for i, rule := range set.Prevent {
		v.validateValues(fmt.Sprintf("prevent_rules[%d]", i), rule)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateValues flags action type leaves naming a template type the exporter does not know
func (v *ConditionSetValidator) validateValues(path string, e conditions.Element) {
	switch e.Type {
	case conditions.KindParentActionType, conditions.KindCurrentActionType, conditions.KindChildActionType:
		if _, ok := templates.CategoryOf(templates.Type(e.Value)); !ok {
			v.errors = append(v.errors, fmt.Sprintf("  - %s: unknown action type %q", path, e.Value))
		}
	}
	for i, c := range e.Children {
		v.validateValues(fmt.Sprintf("%s.children[%d]", path, i), c)
	}
}
