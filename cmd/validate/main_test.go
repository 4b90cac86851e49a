package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionSetValidator(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantErrs []string
	}{
		{
			name: "valid",
			data: `{"generate_rules": [{"type": "ChildActionType", "value": "Wait"}], "prevent_rules": [{"type": "MultipleParents"}]}`,
		},
		{
			name: "every problem is listed",
			data: `{"generate_rules": [{"type": "And"}, {"type": "CurrentNodeType"}], "prevent_rules": [{"type": "Often"}]}`,
			wantErrs: []string{
				"generate_rules[0]: condition group has no children",
				"generate_rules[1]: condition is missing its value",
				`prevent_rules[0]: unknown condition type: "Often"`,
			},
		},
		{
			name:     "unknown action type",
			data:     `{"generate_rules": [{"type": "Or", "children": [{"type": "ParentActionType", "value": "Dance"}]}], "prevent_rules": []}`,
			wantErrs: []string{`generate_rules[0].children[0]: unknown action type "Dance"`},
		},
		{
			name:     "unknown field",
			data:     `{"generate": []}`,
			wantErrs: []string{"strict JSON unmarshaling"},
		},
		{
			name:     "invalid json",
			data:     `{"generate_rules": [`,
			wantErrs: []string{"invalid JSON"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ConditionSetValidator{}
			err := v.validate("set.json", []byte(tt.data))
			if len(tt.wantErrs) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	v := &ConditionSetValidator{}
	assert.NoError(t, v.validateFile("../../data/conditions/default_generation_conditions.json"))

	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "set.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("{}"), 0o644))
	assert.ErrorContains(t, v.validateFile(yamlFile), ".json extension")

	assert.Error(t, v.validateFile(filepath.Join(dir, "missing.json")))
}
