package runner

import (
	"time"
)

// Step modes: the render modes of /v1/render plus an asynchronous export job
const (
	ModeAction   = "action"
	ModePreview  = "preview"
	ModeFunction = "function"
	ModeExport   = "export"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases.
type TestSuite struct {
	Name     string     `yaml:"name"`
	Fixture  string     `yaml:"fixture,omitempty"`   // project fixture, relative to the case file
	DialogID string     `yaml:"dialog_id,omitempty"` // dialog of the fixture the steps render
	Steps    []TestStep `yaml:"steps,omitempty"`
	Cases    []string   `yaml:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep renders one node (or exports the whole dialog) and checks the outcome
type TestStep struct {
	Name         string       `yaml:"name,omitempty"`
	Mode         string       `yaml:"mode,omitempty"` // defaults to action
	NodeID       string       `yaml:"node_id,omitempty"`
	Expectations Expectations `yaml:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	TextContains    []string `yaml:"text_contains,omitempty"`
	TextNotContains []string `yaml:"text_not_contains,omitempty"`
	TextRegex       string   `yaml:"text_regex,omitempty"`
	Preview         *string  `yaml:"preview,omitempty"`

	// Problems reported by the exporter; messages match by substring
	ErrorCount    *int     `yaml:"error_count,omitempty"`
	ErrorMessages []string `yaml:"error_messages,omitempty"`

	// Export steps only
	Functions    []string `yaml:"functions,omitempty"` // generated function names, in order
	LanguageKeys *int     `yaml:"language_keys,omitempty"`
}

// Outcome is what a step produced, normalized across render and export steps
type Outcome struct {
	Text         string
	Preview      string
	Errors       []string
	Functions    []string
	LanguageKeys int
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Outcome  Outcome
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	ProjectID string // project the fixture was seeded as
}
