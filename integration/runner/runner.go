package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/storage"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Seeder writes a project fixture where the API under test reads it
type Seeder interface {
	Import(ctx context.Context, f *storage.Fixture) error
}

// Runner executes integration tests against a running story-export API and worker
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Seeder            Seeder
	Timeout           time.Duration // per export job
	PollInterval      time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string, seeder Seeder) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Seeder:            seeder,
		Timeout:           ExportTimeout,
		PollInterval:      PollInterval,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence.
// Returns a list of actual test suites (expanded from the sequence if needed).
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite seeds the suite's fixture and executes its steps
func (r *Runner) RunSuite(ctx context.Context, job TestJob) (TestRunResult, error) {
	start := time.Now()
	suite := job.Suite
	result := TestRunResult{
		Job:     job,
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	projectID, g, err := r.seed(ctx, job)
	if err != nil {
		result.Error = fmt.Errorf("failed to seed fixture: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.ProjectID = projectID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.executeStep(ctx, projectID, g, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// seed imports the fixture, returning its project id and the dialog under test
func (r *Runner) seed(ctx context.Context, job TestJob) (string, *dialog.Graph, error) {
	if job.Suite.Fixture == "" {
		return "", nil, errors.New("suite has no fixture")
	}
	path := job.Suite.Fixture
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(job.CaseFile), path)
	}
	f, err := storage.LoadFixtureFile(path)
	if err != nil {
		return "", nil, err
	}
	if r.Seeder != nil {
		if err := r.Seeder.Import(ctx, f); err != nil {
			return "", nil, err
		}
	}
	g, ok := f.Dialog(job.Suite.DialogID)
	if !ok {
		return "", nil, fmt.Errorf("dialog %q not found in %s", job.Suite.DialogID, path)
	}
	return f.ProjectID, g, nil
}

// executeStep performs the actual step execution
func (r *Runner) executeStep(ctx context.Context, projectID string, g *dialog.Graph, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	var out Outcome
	var err error
	switch step.Mode {
	case ModeExport:
		out, err = r.export(ctx, projectID, g)
	case "", ModeAction, ModePreview, ModeFunction:
		out, err = r.render(ctx, projectID, g, step)
	default:
		err = fmt.Errorf("unknown step mode %q", step.Mode)
	}
	result.Outcome = out
	if err == nil {
		err = checkExpectations(step.Expectations, out)
	}

	result.Error = err
	result.Success = err == nil
	result.Duration = time.Since(start)
	return result
}

type renderResponse struct {
	Text    string                  `json:"text"`
	Preview string                  `json:"preview"`
	Errors  []exporterr.RenderError `json:"errors"`
}

func (r *Runner) render(ctx context.Context, projectID string, g *dialog.Graph, step TestStep) (Outcome, error) {
	body, err := json.Marshal(map[string]any{
		"project_id": projectID,
		"dialog":     g,
		"node_id":    step.NodeID,
		"mode":       step.Mode,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/render", bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to send render request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Outcome{}, fmt.Errorf("render returned %d: %s", resp.StatusCode, string(body))
	}

	var rr renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return Outcome{}, fmt.Errorf("failed to decode render response: %w", err)
	}
	return Outcome{Text: rr.Text, Preview: rr.Preview, Errors: messages(rr.Errors)}, nil
}

func (r *Runner) export(ctx context.Context, projectID string, g *dialog.Graph) (Outcome, error) {
	requestID, err := PostExport(ctx, r.Client, r.BaseURL, projectID, g)
	if err != nil {
		return Outcome{}, err
	}
	job, err := WaitForJob(ctx, r.Client, r.BaseURL, requestID, r.PollInterval, r.Timeout)
	if err != nil {
		return Outcome{}, err
	}
	if job.Dialog == nil {
		return Outcome{}, fmt.Errorf("export job %s completed without a dialog export", requestID)
	}

	var out Outcome
	var texts []string
	for _, f := range job.Dialog.Functions {
		out.Functions = append(out.Functions, f.Name)
		out.Errors = append(out.Errors, messages(f.Errors)...)
		texts = append(texts, f.Text)
	}
	texts = append(texts, job.Dialog.LanguageFile.Text)
	out.Errors = append(out.Errors, messages(job.Dialog.LanguageFile.Errors)...)
	out.Text = strings.Join(texts, "\n\n")
	out.LanguageKeys = len(job.Dialog.LanguageKeys)
	return out, nil
}

func messages(errs []exporterr.RenderError) []string {
	var out []string
	for _, e := range errs {
		if e.Severity == exporterr.SeverityError {
			out = append(out, e.Message)
		}
	}
	return out
}

// checkExpectations validates every expectation, reporting all that failed
func checkExpectations(exp Expectations, out Outcome) error {
	var errs []error

	for _, s := range exp.TextContains {
		if !strings.Contains(out.Text, s) {
			errs = append(errs, fmt.Errorf("text does not contain %q", s))
		}
	}
	for _, s := range exp.TextNotContains {
		if strings.Contains(out.Text, s) {
			errs = append(errs, fmt.Errorf("text contains %q", s))
		}
	}
	if exp.TextRegex != "" {
		re, err := regexp.Compile(exp.TextRegex)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid text_regex: %w", err))
		case !re.MatchString(out.Text):
			errs = append(errs, fmt.Errorf("text does not match %q", exp.TextRegex))
		}
	}
	if exp.Preview != nil && out.Preview != *exp.Preview {
		errs = append(errs, fmt.Errorf("preview is %q, expected %q", out.Preview, *exp.Preview))
	}

	if exp.ErrorCount != nil && len(out.Errors) != *exp.ErrorCount {
		errs = append(errs, fmt.Errorf("got %d errors, expected %d: %v", len(out.Errors), *exp.ErrorCount, out.Errors))
	}
	for _, want := range exp.ErrorMessages {
		if !slices.ContainsFunc(out.Errors, func(m string) bool { return strings.Contains(m, want) }) {
			errs = append(errs, fmt.Errorf("no error message contains %q", want))
		}
	}

	if exp.Functions != nil && !slices.Equal(out.Functions, exp.Functions) {
		errs = append(errs, fmt.Errorf("functions are %v, expected %v", out.Functions, exp.Functions))
	}
	if exp.LanguageKeys != nil && out.LanguageKeys != *exp.LanguageKeys {
		errs = append(errs, fmt.Errorf("got %d language keys, expected %d", out.LanguageKeys, *exp.LanguageKeys))
	}

	return errors.Join(errs...)
}
