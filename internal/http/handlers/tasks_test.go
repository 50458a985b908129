package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rajeshk/taskhub/internal/domain/task"
	"github.com/rajeshk/taskhub/internal/http/handlers"
	"github.com/rajeshk/taskhub/internal/http/middlewares"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake repository implementing the handlers.TaskStore interface

type fakeTasksRepo struct {
	createFn func(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error)
	listFn   func(ctx context.Context, ownerID string) ([]task.Task, error)
	searchFn func(ctx context.Context, ownerID, query string) ([]task.Task, error)
	updateFn func(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error)
	deleteFn func(ctx context.Context, ownerID, id string) error
}

func (f *fakeTasksRepo) Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	if f.createFn != nil {
		return f.createFn(ctx, ownerID, req)
	}
	return task.Task{}, nil
}

func (f *fakeTasksRepo) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ownerID)
	}
	return []task.Task{}, nil
}

func (f *fakeTasksRepo) SearchByOwner(ctx context.Context, ownerID, query string) ([]task.Task, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, ownerID, query)
	}
	return []task.Task{}, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, ownerID, id, req)
	}
	return task.Task{}, nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ownerID, id)
	}
	return nil
}

// staticVerifier resolves every token to a fixed user id.
type staticVerifier struct {
	userID string
}

func (s *staticVerifier) VerifyToken(string) (string, error) {
	return s.userID, nil
}

// setupTasksRouter mounts the task routes behind the real auth gate
// with a verifier that resolves to the given owner.
func setupTasksRouter(repo handlers.TaskStore, ownerID string) *gin.Engine {
	r := gin.New()

	gate := middlewares.NewAuthMiddleware(&staticVerifier{userID: ownerID}, nil)
	h := handlers.NewTasksHandler(repo, nil, testLogger())

	protected := r.Group("/api", gate.RequireAuth())
	protected.GET("/tasks", h.ListTasks)
	protected.POST("/tasks", h.CreateTask)
	protected.POST("/tasks/search", h.SearchTasks)
	protected.PUT("/tasks/:id", h.UpdateTask)
	protected.DELETE("/tasks/:id", h.DeleteTask)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTaskHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createFn   func(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error)
		wantStatus int
	}{
		{
			name: "valid task is created with default status",
			body: `{"name":"buy milk"}`,
			createFn: func(_ context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
				status := req.Status
				if status == "" {
					status = task.StatusPending
				}
				return task.Task{ID: "t1", OwnerID: ownerID, Name: req.Name, Status: status}, nil
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing name is rejected",
			body:       `{"status":"pending"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "whitespace-only name is rejected",
			body:       `{"name":"   "}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure maps to 500",
			body: `{"name":"buy milk"}`,
			createFn: func(context.Context, string, task.CreateTaskRequest) (task.Task, error) {
				return task.Task{}, errors.New("connection refused")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			created := false

			repo := &fakeTasksRepo{
				createFn: func(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
					created = true
					if tc.createFn != nil {
						return tc.createFn(ctx, ownerID, req)
					}
					return task.Task{}, nil
				},
			}

			r := setupTasksRouter(repo, "owner-1")

			w := doJSON(t, r, http.MethodPost, "/api/tasks", tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantStatus == http.StatusBadRequest && created {
				t.Fatal("rejected create must not reach the store")
			}

			if tc.wantStatus == http.StatusCreated {
				var got task.Task
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("failed to parse created task: %v", err)
				}
				if got.Status != task.StatusPending {
					t.Fatalf("default status: got %q want %q", got.Status, task.StatusPending)
				}
				if got.OwnerID != "owner-1" {
					t.Fatalf("owner: got %q want owner-1", got.OwnerID)
				}
			}
		})
	}
}

func TestListTasksScopedToCaller(t *testing.T) {
	var gotOwner string

	repo := &fakeTasksRepo{
		listFn: func(_ context.Context, ownerID string) ([]task.Task, error) {
			gotOwner = ownerID
			return []task.Task{{ID: "t1", OwnerID: ownerID, Name: "buy milk", Status: "pending"}}, nil
		},
	}

	r := setupTasksRouter(repo, "owner-7")

	w := doJSON(t, r, http.MethodGet, "/api/tasks", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200 (body %s)", w.Code, w.Body.String())
	}

	if gotOwner != "owner-7" {
		t.Fatalf("list must be scoped to the resolved owner, got %q", gotOwner)
	}

	var tasks []task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected list payload: %v", tasks)
	}
}

func TestSearchTasks(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantQuery  string
	}{
		{
			name:       "query reaches the store",
			body:       `{"query":"milk"}`,
			wantStatus: http.StatusOK,
			wantQuery:  "milk",
		},
		{
			name:       "missing query is a validation error",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotQuery string

			repo := &fakeTasksRepo{
				searchFn: func(_ context.Context, ownerID, query string) ([]task.Task, error) {
					gotQuery = query
					return []task.Task{}, nil
				},
			}

			r := setupTasksRouter(repo, "owner-1")

			w := doJSON(t, r, http.MethodPost, "/api/tasks/search", tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantQuery != "" && gotQuery != tc.wantQuery {
				t.Fatalf("query: got %q want %q", gotQuery, tc.wantQuery)
			}
		})
	}
}

func TestUpdateTaskHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		updateFn   func(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error)
		wantStatus int
	}{
		{
			name: "single-field update succeeds",
			body: `{"status":"done"}`,
			updateFn: func(_ context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
				if req.Status == nil || *req.Status != "done" {
					return task.Task{}, errors.New("status not carried through")
				}
				if req.Name != nil || req.StartTime != nil || req.EndTime != nil {
					return task.Task{}, errors.New("unsupplied fields must stay nil")
				}
				return task.Task{ID: id, OwnerID: ownerID, Name: "buy milk", Status: "done"}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "empty patch is a validation error",
			body: `{}`,
			updateFn: func(context.Context, string, string, task.UpdateTaskRequest) (task.Task, error) {
				return task.Task{}, task.ErrNoFields
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown id is not found",
			body: `{"status":"done"}`,
			updateFn: func(context.Context, string, string, task.UpdateTaskRequest) (task.Task, error) {
				return task.Task{}, task.ErrNotFound
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeTasksRepo{updateFn: tc.updateFn}

			r := setupTasksRouter(repo, "owner-1")

			w := doJSON(t, r, http.MethodPut, "/api/tasks/t1", tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestDeleteTaskIdempotent(t *testing.T) {
	var gotOwner, gotID string

	repo := &fakeTasksRepo{
		deleteFn: func(_ context.Context, ownerID, id string) error {
			gotOwner = ownerID
			gotID = id
			// repo reports success even when nothing matched
			return nil
		},
	}

	r := setupTasksRouter(repo, "owner-1")

	w := doJSON(t, r, http.MethodDelete, "/api/tasks/nonexistent", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200 (body %s)", w.Code, w.Body.String())
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil || !parsed.Success {
		t.Fatalf("expected {success:true}, got %s", w.Body.String())
	}

	if gotOwner != "owner-1" || gotID != "nonexistent" {
		t.Fatalf("delete must pass owner and id, got owner=%q id=%q", gotOwner, gotID)
	}
}

func TestListTasksServedFromCache(t *testing.T) {
	calls := 0

	repo := &fakeTasksRepo{
		listFn: func(_ context.Context, ownerID string) ([]task.Task, error) {
			calls++
			return []task.Task{{ID: "t1", OwnerID: ownerID, Name: "buy milk", Status: "pending"}}, nil
		},
	}

	lists := newFakeCache()

	r := gin.New()
	gate := middlewares.NewAuthMiddleware(&staticVerifier{userID: "owner-1"}, nil)
	h := handlers.NewTasksHandler(repo, lists, testLogger())
	r.GET("/api/tasks", gate.RequireAuth(), h.ListTasks)
	r.POST("/api/tasks", gate.RequireAuth(), h.CreateTask)

	// first list fills the cache, second is served from it
	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodGet, "/api/tasks", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d (body %s)", w.Code, w.Body.String())
		}
	}

	if calls != 1 {
		t.Fatalf("expected one store round trip, got %d", calls)
	}

	// a mutation invalidates, so the next list goes to the store again
	w := doJSON(t, r, http.MethodPost, "/api/tasks", `{"name":"walk dog"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status: got %d (body %s)", w.Code, w.Body.String())
	}

	_ = doJSON(t, r, http.MethodGet, "/api/tasks", "")

	if calls != 2 {
		t.Fatalf("expected cache invalidation to force a second round trip, got %d", calls)
	}
}

type fakeCache struct {
	m map[string][]task.Task
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[string][]task.Task)}
}

func (f *fakeCache) Get(_ context.Context, ownerID string) ([]task.Task, bool) {
	tasks, ok := f.m[ownerID]
	return tasks, ok
}

func (f *fakeCache) Set(_ context.Context, ownerID string, tasks []task.Task) {
	f.m[ownerID] = tasks
}

func (f *fakeCache) Invalidate(_ context.Context, ownerID string) {
	delete(f.m, ownerID)
}

func TestCreateTaskCarriesTimes(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	var got task.CreateTaskRequest

	repo := &fakeTasksRepo{
		createFn: func(_ context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
			got = req
			return task.Task{ID: "t1", OwnerID: ownerID, Name: req.Name, Status: "pending", StartTime: req.StartTime}, nil
		},
	}

	r := setupTasksRouter(repo, "owner-1")

	w := doJSON(t, r, http.MethodPost, "/api/tasks", `{"name":"buy milk","start_time":"2024-01-02T09:00:00Z"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d (body %s)", w.Code, w.Body.String())
	}

	if got.StartTime == nil || !got.StartTime.Equal(start) {
		t.Fatalf("start_time not carried through: %v", got.StartTime)
	}

	if got.EndTime != nil {
		t.Fatalf("absent end_time must stay nil, got %v", got.EndTime)
	}
}
