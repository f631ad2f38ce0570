package caseportsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal caseport HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Case struct {
	Input  string  `json:"input"`
	Answer string  `json:"answer"`
	Score  *uint32 `json:"score,omitempty"`
}

type Subtask struct {
	Cases []Case `json:"cases"`
	Score uint32 `json:"score"`
}

// CasesConfig is the canonical judge configuration.
type CasesConfig struct {
	Score uint32 `json:"score"`
	Judge struct {
		JudgeType string `json:"judgeType"`
		Checker   string `json:"checker,omitempty"`
	} `json:"judge"`
	ResourceLimits struct {
		Time   uint32 `json:"time"`
		Memory uint32 `json:"memory"`
	} `json:"resourceLimits"`
	Task struct {
		TaskType string    `json:"taskType"`
		Cases    []Case    `json:"cases,omitempty"`
		Subtasks []Subtask `json:"subtasks,omitempty"`
	} `json:"task"`
}

// Run is one archive conversion.
type Run struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Output     string `json:"output"`
	Status     string `json:"status"`
	Documents  int    `json:"documents"`
	Renamed    int    `json:"renamed"`
	Bytes      int64  `json:"bytes"`
	ErrorKind  string `json:"error_kind"`
	Error      string `json:"error"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// Event represents a journal entry.
type Event struct {
	ID      int64          `json:"id"`
	TS      string         `json:"ts"`
	RunID   string         `json:"run_id"`
	Type    string         `json:"type"`
	Subject string         `json:"subject"`
	Payload map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Kind returns the conversion error kind of a 422 response, if any.
func (e *APIError) Kind() string {
	kind, _ := e.Details["kind"].(string)
	return kind
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// Health pings the API.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "v0/health", nil, nil)
}

// Convert converts a legacy configuration document.
func (c *Client) Convert(ctx context.Context, document string) (CasesConfig, error) {
	var resp CasesConfig
	err := c.do(ctx, http.MethodPost, "v0/convert", map[string]any{"document": document}, &resp)
	return resp, err
}

// Runs returns the most recent runs, optionally filtered by status.
func (c *Client) Runs(ctx context.Context, status string, limit int) ([]Run, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	endpoint := "v0/runs"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Run `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Run fetches a run by id.
func (c *Client) Run(ctx context.Context, id string) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodGet, "v0/runs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// EventsPage returns a page of a run's events.
func (c *Client) EventsPage(ctx context.Context, runID string, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/runs/" + url.PathEscape(runID) + "/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns every event of a run.
func (c *Client) Events(ctx context.Context, runID string) ([]Event, error) {
	var all []Event
	cursor := ""
	for {
		page, err := c.EventsPage(ctx, runID, 200, cursor)
		if err != nil {
			return all, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
