// Package board implements the client side of the task tracker: an HTTP
// client for the task API, an in-memory mirror of the task list with an
// optimistic-update protocol, and the derived views the UI renders.
package board

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"taskmaster/domain"
)

// DefaultTimeout bounds every API request so a hung request cannot leave a
// card pending forever; expiry takes the same rollback path as any failure.
const DefaultTimeout = 10 * time.Second

const clientPayloadMaxSize = 1 << 20 // 1 MiB

// Client talks to the task API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// CreateInput carries the fields of a creation request; omitted optional
// fields get the server-side defaults.
type CreateInput struct {
	Title    string          `json:"title"`
	Priority domain.Priority `json:"priority,omitempty"`
	Status   domain.Status   `json:"status,omitempty"`
	Assignee string          `json:"assignee,omitempty"`
	Starred  bool            `json:"starred,omitempty"`
}

// StatusError reports a non-success API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api responded %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api responded %d", e.Code)
}

// wireTask is the task object as it appears on the wire. Some deployments
// expose the store-native identifier as _id instead of id; normalization to
// one canonical shape happens here and nowhere else.
type wireTask struct {
	ID        string          `json:"id"`
	RawID     string          `json:"_id"`
	Title     string          `json:"title"`
	Priority  domain.Priority `json:"priority"`
	Status    domain.Status   `json:"status"`
	Assignee  string          `json:"assignee"`
	Starred   bool            `json:"starred"`
	CreatedAt int64           `json:"createdAt"`
}

func (w wireTask) normalize() domain.Task {
	id := w.ID
	if id == "" {
		id = w.RawID
	}
	priority := w.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	status := w.Status
	if status == "" {
		status = domain.StatusBacklog
	}
	return domain.Task{
		ID:        id,
		Title:     w.Title,
		Priority:  priority,
		Status:    status,
		Assignee:  w.Assignee,
		Starred:   w.Starred,
		CreatedAt: w.CreatedAt,
	}
}

// ListTasks fetches all tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var wire []wireTask
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, http.StatusOK, &wire); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, len(wire))
	for i, w := range wire {
		tasks[i] = w.normalize()
	}
	return tasks, nil
}

// CreateTask creates a task and returns the materialized server copy.
func (c *Client) CreateTask(ctx context.Context, input CreateInput) (domain.Task, error) {
	var wire wireTask
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, http.StatusCreated, &wire); err != nil {
		return domain.Task{}, err
	}
	return wire.normalize(), nil
}

// UpdateTask applies a partial update and returns the updated server copy.
func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	var wire wireTask
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+id, patch, http.StatusOK, &wire); err != nil {
		return domain.Task{}, err
	}
	return wire.normalize(), nil
}

// Health checks API reachability.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.do(ctx, http.MethodGet, "/api/health", nil, http.StatusOK, &resp)
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, clientPayloadMaxSize))
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = sonic.Unmarshal(data, &apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	return sonic.Unmarshal(data, out)
}
