package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"taskmaster/domain"
)

type mockStore struct {
	tasks    []domain.Task
	fetchErr error

	createErr error
	updateErr error

	mu        sync.Mutex
	created   []domain.Task
	updatedID string
	patch     domain.TaskPatch
	updated   domain.Task
	published []domain.TaskEvent
}

func (m *mockStore) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	return m.tasks, m.fetchErr
}

func (m *mockStore) CreateTask(ctx context.Context, t domain.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, t)
	return nil
}

func (m *mockStore) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if m.updateErr != nil {
		return domain.Task{}, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedID = id
	m.patch = patch
	return m.updated, nil
}

func (m *mockStore) PublishEvents(ctx context.Context, events []domain.TaskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, events...)
	return nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "task not found" }
func (notFoundErr) NotFound()     {}

func nullLogger() *log.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestGetTasks(t *testing.T) {
	e := echo.New()
	store := &mockStore{tasks: []domain.Task{
		{ID: "2", Title: "newer", Status: domain.StatusReview, CreatedAt: 2},
		{ID: "1", Title: "older", Status: domain.StatusBacklog, CreatedAt: 1},
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := getTasks(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var tasks []domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "2" || tasks[1].ID != "1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestGetTasksStorageError(t *testing.T) {
	e := echo.New()
	store := &mockStore{fetchErr: errors.New("table unavailable")}
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := getTasks(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Failed to fetch tasks" {
		t.Fatalf("unexpected error body: %q", body.Error)
	}
}

func TestCreateTaskAppliesDefaults(t *testing.T) {
	e := echo.New()
	store := &mockStore{}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"Write spec"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := createTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var created domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if created.CreatedAt == 0 {
		t.Fatal("expected server-assigned createdAt")
	}
	if created.Priority != domain.PriorityMedium {
		t.Fatalf("expected default priority Medium, got %q", created.Priority)
	}
	if created.Status != domain.StatusBacklog {
		t.Fatalf("expected default status backlog, got %q", created.Status)
	}
	if created.Assignee != "" || created.Starred {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 persisted task, got %d", len(store.created))
	}
	if store.created[0] != created {
		t.Fatalf("persisted task differs from response: %+v vs %+v", store.created[0], created)
	}
}

func TestCreateTaskKeepsProvidedFields(t *testing.T) {
	e := echo.New()
	store := &mockStore{}
	body := `{"title":"t","priority":"High","status":"review","assignee":"sam","starred":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := createTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var created domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Priority != domain.PriorityHigh || created.Status != domain.StatusReview ||
		created.Assignee != "sam" || !created.Starred {
		t.Fatalf("provided fields lost: %+v", created)
	}
}

func TestCreateTaskMissingTitle(t *testing.T) {
	for _, body := range []string{`{}`, `{"title":""}`, `{"title":"   "}`} {
		e := echo.New()
		store := &mockStore{}
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := createTask(store, nullLogger())(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		var resp errorResponse
		if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error != "Title is required" {
			t.Fatalf("unexpected error body: %q", resp.Error)
		}
		if len(store.created) != 0 {
			t.Fatalf("body %s: nothing should be persisted", body)
		}
	}
}

func TestCreateTaskInvalidBody(t *testing.T) {
	e := echo.New()
	store := &mockStore{}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := createTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateTaskStorageError(t *testing.T) {
	e := echo.New()
	store := &mockStore{createErr: errors.New("table unavailable")}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"t"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := createTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestUpdateTask(t *testing.T) {
	e := echo.New()
	store := &mockStore{updated: domain.Task{ID: "t1", Title: "t", Status: domain.StatusDone, CreatedAt: 5}}
	req := httptest.NewRequest(http.MethodPatch, "/api/tasks/t1", strings.NewReader(`{"status":"done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.updatedID != "t1" {
		t.Fatalf("unexpected id passed to store: %q", store.updatedID)
	}
	if store.patch.Status == nil || *store.patch.Status != domain.StatusDone {
		t.Fatalf("patch not forwarded: %+v", store.patch)
	}

	var updated domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != domain.StatusDone {
		t.Fatalf("unexpected response: %+v", updated)
	}
}

func TestUpdateTaskIgnoresUnknownFields(t *testing.T) {
	e := echo.New()
	store := &mockStore{updated: domain.Task{ID: "t1"}}
	req := httptest.NewRequest(http.MethodPatch, "/api/tasks/t1", strings.NewReader(`{"bogus":1,"status":"done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.patch.Status == nil || store.patch.Title != nil || store.patch.Starred != nil {
		t.Fatalf("unexpected patch: %+v", store.patch)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	e := echo.New()
	store := &mockStore{updateErr: notFoundErr{}}
	req := httptest.NewRequest(http.MethodPatch, "/api/tasks/missing", strings.NewReader(`{"status":"done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := updateTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp errorResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Not found" {
		t.Fatalf("unexpected error body: %q", resp.Error)
	}
}

func TestUpdateTaskStorageError(t *testing.T) {
	e := echo.New()
	store := &mockStore{updateErr: errors.New("table unavailable")}
	req := httptest.NewRequest(http.MethodPatch, "/api/tasks/t1", strings.NewReader(`{"status":"done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTask(store, nullLogger())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := health()(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("unexpected health body: %+v", resp)
	}
}

// memStore is a tiny in-memory Storage used for the end-to-end lifecycle test.
type memStore struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func newMemStore() *memStore {
	return &memStore{tasks: map[string]domain.Task{}}
}

func (m *memStore) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memStore) CreateTask(ctx context.Context, t domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *memStore) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, notFoundErr{}
	}
	patch.Apply(&task)
	m.tasks[id] = task
	return task, nil
}

func (m *memStore) PublishEvents(ctx context.Context, events []domain.TaskEvent) error {
	return nil
}

func TestTaskLifecycle(t *testing.T) {
	resetEventPublisherForTests()
	t.Cleanup(resetEventPublisherForTests)

	e := echo.New()
	store := newMemStore()
	Register(e, store, nullLogger())
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	// Create.
	resp, err := http.Post(srv.URL+"/api/tasks", echo.MIMEApplicationJSON, strings.NewReader(`{"title":"Write spec"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created domain.Task
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	resp.Body.Close()
	if created.Status != domain.StatusBacklog || created.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	// List includes the task exactly once.
	resp, err = http.Get(srv.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var tasks []domain.Task
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	var matches int
	for _, task := range tasks {
		if task.ID == created.ID {
			matches++
			if task != created {
				t.Fatalf("listed task differs: %+v vs %+v", task, created)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("expected task to appear exactly once, got %d", matches)
	}

	// Move to done.
	patchReq, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/tasks/"+created.ID, strings.NewReader(`{"status":"done"}`))
	if err != nil {
		t.Fatalf("patch request: %v", err)
	}
	patchReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp, err = http.DefaultClient.Do(patchReq)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var updated domain.Task
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	resp.Body.Close()
	if updated.Status != domain.StatusDone {
		t.Fatalf("expected done, got %+v", updated)
	}

	// Patch on a nonexistent id.
	patchReq, err = http.NewRequest(http.MethodPatch, srv.URL+"/api/tasks/does-not-exist", strings.NewReader(`{"status":"done"}`))
	if err != nil {
		t.Fatalf("patch request: %v", err)
	}
	patchReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp, err = http.DefaultClient.Do(patchReq)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
