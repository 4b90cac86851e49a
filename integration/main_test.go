//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/story-export/integration/runner"
	"github.com/jwebster45206/story-export/internal/storage"
)

var caseFlag = flag.String("case", "", "Comma-separated test cases to run (from integration/cases/), all when empty")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestMain(m *testing.M) {
	fmt.Printf("Running Story Export Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", getEnv("API_BASE_URL", "http://localhost:8080"))
	fmt.Printf("   Redis URL:    %s\n", getEnv("REDIS_URL", "localhost:6379"))
	os.Exit(m.Run())
}

func caseFiles(t *testing.T) []string {
	t.Helper()
	if *caseFlag == "" {
		files, err := filepath.Glob(filepath.Join("cases", "*.yaml"))
		if err != nil {
			t.Fatalf("Failed to discover test files: %v", err)
		}
		return files
	}
	var files []string
	for _, name := range strings.Split(*caseFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".yaml") {
			name += ".yaml"
		}
		files = append(files, filepath.Join("cases", name))
	}
	return files
}

func TestIntegrationSuites(t *testing.T) {
	flag.Parse()
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	seeder, err := storage.NewRedisStorage(getEnv("REDIS_URL", "localhost:6379"), "../data", logger)
	if err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer seeder.Close()

	testRunner := runner.NewRunner(getEnv("API_BASE_URL", "http://localhost:8080"), seeder)
	testRunner.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	testRunner.Logger = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}

	var jobs []runner.TestJob
	for _, file := range caseFiles(t) {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for i, job := range jobs {
		t.Run(job.Name, func(t *testing.T) {
			t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))
			result, _ := testRunner.RunSuite(ctx, job)
			for _, stepResult := range result.Results {
				if stepResult.Success {
					t.Logf("   ✓ %s (%v)", stepResult.StepName, stepResult.Duration)
				} else {
					t.Errorf("   ✗ %s: %v", stepResult.StepName, stepResult.Error)
				}
			}
			if result.Error != nil && len(result.Results) == 0 {
				t.Fatalf("Test suite '%s' failed: %v", job.Name, result.Error)
			}
		})
	}
}
