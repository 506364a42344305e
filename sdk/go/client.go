// Package caselinesdk is a minimal client for the Caseline HTTP API.
package caselinesdk

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

// Client talks to a Caseline server.
type Client struct {
	BaseURL     string
	APIKey      string
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

// Dossier is the API dossier model.
type Dossier struct {
	ID              string  `json:"id"`
	Ref             string  `json:"ref"`
	Flow            string  `json:"flow"`
	Status          string  `json:"status"`
	LegalHold       bool    `json:"legal_hold"`
	LegalHoldReason *string `json:"legal_hold_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// Task is the API task model (partial).
type Task struct {
	ID          string  `json:"id"`
	DossierID   *string `json:"dossier_id,omitempty"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Column      string  `json:"column"`
	Position    int     `json:"position"`
	Blocked     bool    `json:"blocked"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// HistoryEvent is one status change.
type HistoryEvent struct {
	ID         int64   `json:"id"`
	DossierID  string  `json:"dossier_id"`
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	ActorID    string  `json:"actor_id"`
	Reason     *string `json:"reason,omitempty"`
	TS         string  `json:"ts"`
}

// TransitionResult pairs the updated dossier with its history event.
type TransitionResult struct {
	Dossier Dossier      `json:"dossier"`
	Event   HistoryEvent `json:"event"`
}

// EvaluateResult reports which task types the evaluator completed.
type EvaluateResult struct {
	Completed []string `json:"completed,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// APIError wraps non-2xx responses. Code carries the envelope's error code
// (legal_hold, open_tasks, invalid_transition, ...) when present.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateDossier opens a dossier. Flow may be empty when not yet known.
func (c *Client) CreateDossier(ctx context.Context, ref, flow string) (Dossier, error) {
	body := map[string]any{"ref": ref}
	if flow != "" {
		body["flow"] = flow
	}
	var resp Dossier
	err := c.do(ctx, http.MethodPost, "v0/dossiers", body, &resp)
	return resp, err
}

// GetDossier fetches a dossier by id.
func (c *Client) GetDossier(ctx context.Context, id string) (Dossier, error) {
	var resp Dossier
	err := c.do(ctx, http.MethodGet, "v0/dossiers/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Transition requests a status change. Gate refusals come back as APIError
// with the gate code.
func (c *Client) Transition(ctx context.Context, dossierID, target, reason string) (TransitionResult, error) {
	body := map[string]any{"target": target}
	if reason != "" {
		body["reason"] = reason
	}
	var resp TransitionResult
	endpoint := fmt.Sprintf("v0/dossiers/%s/transition", url.PathEscape(dossierID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// PlaceHold freezes the dossier's status.
func (c *Client) PlaceHold(ctx context.Context, dossierID, reason string) (Dossier, error) {
	var resp Dossier
	endpoint := fmt.Sprintf("v0/dossiers/%s/hold", url.PathEscape(dossierID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"reason": reason}, &resp)
	return resp, err
}

// ClearHold lifts a legal hold.
func (c *Client) ClearHold(ctx context.Context, dossierID string) (Dossier, error) {
	var resp Dossier
	endpoint := fmt.Sprintf("v0/dossiers/%s/hold", url.PathEscape(dossierID))
	err := c.do(ctx, http.MethodDelete, endpoint, nil, &resp)
	return resp, err
}

// History returns the dossier's status history, oldest first.
func (c *Client) History(ctx context.Context, dossierID string) ([]HistoryEvent, error) {
	var resp []HistoryEvent
	endpoint := fmt.Sprintf("v0/dossiers/%s/history", url.PathEscape(dossierID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Tasks returns the dossier's tasks.
func (c *Client) Tasks(ctx context.Context, dossierID string) ([]Task, error) {
	var resp []Task
	endpoint := fmt.Sprintf("v0/dossiers/%s/tasks", url.PathEscape(dossierID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MoveTask places a task at the end of a column.
func (c *Client) MoveTask(ctx context.Context, taskID, column string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/move", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"column": column}, &resp)
	return resp, err
}

// CompleteTask marks a task done.
func (c *Client) CompleteTask(ctx context.Context, taskID, note string) (Task, error) {
	body := map[string]any{}
	if note != "" {
		body["note"] = note
	}
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/complete", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Evaluate runs the auto-completion evaluator for a dossier.
func (c *Client) Evaluate(ctx context.Context, dossierID string) (EvaluateResult, error) {
	var resp EvaluateResult
	endpoint := fmt.Sprintf("v0/dossiers/%s/evaluate", url.PathEscape(dossierID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
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
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
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
