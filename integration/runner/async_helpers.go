package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/queue"
)

const (
	// PollInterval is how often to check an export job for completion
	PollInterval = 500 * time.Millisecond
	// ExportTimeout is max time to wait for a worker to finish an export job
	ExportTimeout = 30 * time.Second
)

// PostExport enqueues a dialog export and returns the request_id
func PostExport(ctx context.Context, client *http.Client, baseURL, projectID string, g *dialog.Graph) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"project_id": projectID,
		"dialog":     g,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal export request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/exports", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send export request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("exports endpoint returned %d (expected 202): %s", resp.StatusCode, string(body))
	}

	var job queue.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", fmt.Errorf("failed to parse export response: %w", err)
	}
	return job.RequestID, nil
}

// GetJob retrieves the current state of an export job
func GetJob(ctx context.Context, client *http.Client, baseURL, requestID string) (*queue.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/exports/"+requestID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create job request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("job endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var job queue.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

// WaitForJob polls an export job until a worker completes or fails it
func WaitForJob(ctx context.Context, client *http.Client, baseURL, requestID string, interval, timeout time.Duration) (*queue.Job, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := GetJob(ctx, client, baseURL, requestID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case queue.StatusCompleted:
			return job, nil
		case queue.StatusFailed:
			return job, fmt.Errorf("export job failed: %s", job.Error)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for export job %s (status %s)", requestID, job.Status)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
