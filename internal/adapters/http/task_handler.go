package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daymark/core/internal/application/services"
	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ports"
)

// TaskHandler handles task requests. Each request is routed to the
// workspace of the caller: signed-in users get their own remote-backed
// workspace, anonymous callers share the guest workspace.
type TaskHandler struct {
	hub    *services.Hub
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(hub *services.Hub, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{hub: hub, logger: logger}
}

func (h *TaskHandler) workspace(c echo.Context) *services.Workspace {
	if claims := getClaims(c); claims != nil {
		return h.hub.ForUser(claims.UserID, claims.Email)
	}
	return h.hub.Guest()
}

// List godoc
// @Summary List tasks in display order
// @Tags tasks
// @Produce json
// @Success 200 {object} TaskListResponse
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	ws := h.workspace(c)
	return c.JSON(http.StatusOK, TaskListResponse{
		Tasks:   ws.Tasks.Snapshot(),
		Loading: ws.Tasks.Loading(),
		Mode:    ws.Tasks.Mode().String(),
	})
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.AddTaskRequest true "Task details"
// @Success 201 {object} entities.Task
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req ports.AddTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.workspace(c).Tasks.Add(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create task failed", "error", err)
		return taskError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// Update godoc
// @Summary Apply a partial update to a task
// @Tags tasks
// @Accept json
// @Param id path string true "Task ID"
// @Param request body ports.TaskPatch true "Fields to change"
// @Success 204
// @Router /tasks/{id} [patch]
func (h *TaskHandler) Update(c echo.Context) error {
	var patch ports.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	id := c.Param("id")
	if err := h.workspace(c).Tasks.Update(c.Request().Context(), id, patch); err != nil {
		h.logger.Errorw("Update task failed", "error", err, "task_id", id)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Toggle godoc
// @Summary Flip a task's completion flag
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Router /tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c echo.Context) error {
	id := c.Param("id")
	if err := h.workspace(c).Tasks.Toggle(c.Request().Context(), id); err != nil {
		h.logger.Errorw("Toggle task failed", "error", err, "task_id", id)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.workspace(c).Tasks.Delete(c.Request().Context(), id); err != nil {
		h.logger.Errorw("Delete task failed", "error", err, "task_id", id)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// BulkComplete godoc
// @Summary Mark several tasks completed
// @Tags tasks
// @Accept json
// @Param request body BulkIDsRequest true "Task IDs"
// @Success 204
// @Router /tasks/bulk/complete [post]
func (h *TaskHandler) BulkComplete(c echo.Context) error {
	var req BulkIDsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.workspace(c).Tasks.BulkComplete(c.Request().Context(), req.IDs); err != nil {
		h.logger.Errorw("Bulk complete failed", "error", err)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// BulkDelete godoc
// @Summary Delete several tasks
// @Tags tasks
// @Accept json
// @Param request body BulkIDsRequest true "Task IDs"
// @Success 204
// @Router /tasks/bulk/delete [post]
func (h *TaskHandler) BulkDelete(c echo.Context) error {
	var req BulkIDsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.workspace(c).Tasks.BulkDelete(c.Request().Context(), req.IDs); err != nil {
		h.logger.Errorw("Bulk delete failed", "error", err)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ClearCompleted godoc
// @Summary Delete every completed task
// @Tags tasks
// @Success 204
// @Router /tasks/completed [delete]
func (h *TaskHandler) ClearCompleted(c echo.Context) error {
	if err := h.workspace(c).Tasks.ClearCompleted(c.Request().Context()); err != nil {
		h.logger.Errorw("Clear completed failed", "error", err)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Reorder godoc
// @Summary Replace the display order of all tasks
// @Tags tasks
// @Accept json
// @Param request body ReorderRequest true "Every task ID in the new order"
// @Success 204
// @Router /tasks/order [put]
func (h *TaskHandler) Reorder(c echo.Context) error {
	var req ReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.workspace(c).Tasks.Reorder(c.Request().Context(), req.IDs); err != nil {
		h.logger.Errorw("Reorder failed", "error", err)
		return taskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Stream godoc
// @Summary Subscribe to task snapshots over server-sent events
// @Tags tasks
// @Produce text/event-stream
// @Success 200
// @Router /tasks/stream [get]
func (h *TaskHandler) Stream(c echo.Context) error {
	ws := h.workspace(c)

	events := make(chan []entities.Task, 1)
	stop := ws.Tasks.Watch(func(tasks []entities.Task) {
		// Keep only the latest snapshot when the client is slow.
		select {
		case events <- tasks:
		default:
			select {
			case <-events:
			default:
			}
			select {
			case events <- tasks:
			default:
			}
		}
	})
	defer stop()

	w := prepareSSE(c)
	if err := writeSSE(w, ws.Tasks.Snapshot()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case tasks := <-events:
			if err := writeSSE(w, tasks); err != nil {
				return nil
			}
		}
	}
}

func taskError(err error) error {
	var bulkErr *ports.BulkError
	switch {
	case errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	case errors.Is(err, entities.ErrEmptyText), errors.Is(err, entities.ErrInvalidPriority):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &bulkErr):
		return echo.NewHTTPError(http.StatusMultiStatus, map[string]interface{}{
			"error":      bulkErr.Error(),
			"failed_ids": bulkErr.FailedIDs(),
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Operation failed")
	}
}

func prepareSSE(c echo.Context) *echo.Response {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()
	return w
}

func writeSSE(w *echo.Response, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

type TaskListResponse struct {
	Tasks   []entities.Task `json:"tasks"`
	Loading bool            `json:"loading"`
	Mode    string          `json:"mode"`
}

type BulkIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}
