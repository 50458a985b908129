package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rajeshk/taskhub/internal/cache"
	"github.com/rajeshk/taskhub/internal/config"
	"github.com/rajeshk/taskhub/internal/domain/task"
	"github.com/rajeshk/taskhub/internal/http/middlewares"
)

type TaskStore interface {
	Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error)
	SearchByOwner(ctx context.Context, ownerID, query string) ([]task.Task, error)
	Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type TasksHandler struct {
	repo  TaskStore
	lists cache.TaskLists
	log   *slog.Logger
}

func NewTasksHandler(repo TaskStore, lists cache.TaskLists, log *slog.Logger) *TasksHandler {
	return &TasksHandler{repo: repo, lists: lists, log: log}
}

// ownerID pulls the identity resolved by the auth middleware. Routes
// are always mounted behind RequireAuth, so a miss is a wiring bug.
func (h *TasksHandler) ownerID(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return "", false
	}

	return id, true
}

func (h *TasksHandler) invalidate(ctx context.Context, ownerID string) {
	if h.lists != nil {
		h.lists.Invalidate(ctx, ownerID)
	}
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	ownerID, ok := h.ownerID(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// binding's required tag lets whitespace-only names through
	if strings.TrimSpace(req.Name) == "" {
		RespondBadRequest(ctx, "Task name is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, ownerID, req)

	if err != nil {
		h.log.Error("task create failed", "err", err, "owner_id", ownerID)
		RespondInternal(ctx, "Could not create task")
		return
	}

	h.invalidate(cctx, ownerID)

	ctx.JSON(http.StatusCreated, created)
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	ownerID, ok := h.ownerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if h.lists != nil {
		if tasks, hit := h.lists.Get(cctx, ownerID); hit {
			ctx.JSON(http.StatusOK, tasks)
			return
		}
	}

	tasks, err := h.repo.ListByOwner(cctx, ownerID)

	if err != nil {
		h.log.Error("task list failed", "err", err, "owner_id", ownerID)
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	if h.lists != nil {
		h.lists.Set(cctx, ownerID, tasks)
	}

	ctx.JSON(http.StatusOK, tasks)
}

func (h *TasksHandler) SearchTasks(ctx *gin.Context) {
	ownerID, ok := h.ownerID(ctx)
	if !ok {
		return
	}

	var req task.SearchTasksRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tasks, err := h.repo.SearchByOwner(cctx, ownerID, req.Query)

	if err != nil {
		h.log.Error("task search failed", "err", err, "owner_id", ownerID)
		RespondInternal(ctx, "Could not search tasks")
		return
	}

	ctx.JSON(http.StatusOK, tasks)
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	ownerID, ok := h.ownerID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, ownerID, id, req)

	if err != nil {
		if errors.Is(err, task.ErrNoFields) {
			RespondBadRequest(ctx, "No fields to update", nil)
			return
		}

		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		h.log.Error("task update failed", "err", err, "owner_id", ownerID, "task_id", id)
		RespondInternal(ctx, "Could not update task")
		return
	}

	h.invalidate(cctx, ownerID)

	ctx.JSON(http.StatusOK, updated)
}

// DeleteTask always reports success: deleting an id that is already
// gone is a no-op.
func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	ownerID, ok := h.ownerID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, ownerID, id)

	if err != nil {
		h.log.Error("task delete failed", "err", err, "owner_id", ownerID, "task_id", id)
		RespondInternal(ctx, "Could not delete task")
		return
	}

	h.invalidate(cctx, ownerID)

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
