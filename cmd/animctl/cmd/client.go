package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shortshive/internal/animation"
)

// Client calls the shortshive HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL. Generation waits on the image model,
// so the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Scene is one stored scene as listed by the server.
type Scene struct {
	ID                  string `json:"id"`
	SceneNumber         int    `json:"scene_number"`
	DurationEstimate    int    `json:"duration_estimate"`
	VisualDescription   string `json:"visual_description"`
	DialogueOrNarration string `json:"dialogue_or_narration"`
}

type Story struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ScenesResponse struct {
	Success bool    `json:"success"`
	Story   Story   `json:"story"`
	Scenes  []Scene `json:"scenes"`
}

// Generate sends POST /animations. A provider failure still carries a result
// body, so it is returned alongside the error.
func (c *Client) Generate(req animation.GenerateRequest) (*animation.GenerateResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var out animation.GenerateResult
	status, err := c.do(http.MethodPost, "/animations", bytes.NewReader(body), &out)
	if err != nil {
		if status == http.StatusInternalServerError && len(out.Images) > 0 {
			return &out, err
		}
		return nil, err
	}
	return &out, nil
}

// Status sends GET /animations/{story_id}/status.
func (c *Client) Status(storyID string) (*animation.StatusReport, error) {
	var out animation.StatusReport
	if _, err := c.do(http.MethodGet, "/animations/"+url.PathEscape(storyID)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scenes sends GET /stories/{story_id}/scenes.
func (c *Client) Scenes(storyID string) (*ScenesResponse, error) {
	var out ScenesResponse
	if _, err := c.do(http.MethodGet, "/stories/"+url.PathEscape(storyID)+"/scenes", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(method, path string, body io.Reader, out any) (int, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
		// best effort: a failed run still reports its placeholders
		_ = json.Unmarshal(respBody, out)
		return resp.StatusCode, apiErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}
