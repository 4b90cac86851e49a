package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/story-export/internal/handlers"
	"github.com/jwebster45206/story-export/pkg/dialog"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// decodeResponse reads resp into out, turning any other status into the API's error message
func decodeResponse(resp *http.Response, wantStatus int, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
		}
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, errorResp.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func postJSON(client *http.Client, url string, payload any, wantStatus int, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return decodeResponse(resp, wantStatus, out)
}

func renderNode(client *http.Client, baseURL, projectID string, g *dialog.Graph, nodeID, mode string) (*handlers.RenderResponse, error) {
	req := handlers.RenderRequest{
		ProjectID: projectID,
		Dialog:    g,
		NodeID:    nodeID,
		Mode:      mode,
	}
	var out handlers.RenderResponse
	if err := postJSON(client, baseURL+"/v1/render", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func enqueueExport(client *http.Client, baseURL, projectID string, g *dialog.Graph) (*queuePkg.Job, error) {
	req := handlers.EnqueueRequest{
		ProjectID: projectID,
		Dialog:    g,
	}
	var job queuePkg.Job
	if err := postJSON(client, baseURL+"/v1/exports", req, http.StatusAccepted, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func getJob(client *http.Client, baseURL, requestID string) (*queuePkg.Job, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/exports/%s", baseURL, requestID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	var job queuePkg.Job
	if err := decodeResponse(resp, http.StatusOK, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
