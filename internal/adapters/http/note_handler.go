package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daymark/core/internal/application/services"
	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ports"
)

// NoteHandler handles note requests, routed per caller workspace like
// the task handler.
type NoteHandler struct {
	hub    *services.Hub
	logger *logger.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(hub *services.Hub, logger *logger.Logger) *NoteHandler {
	return &NoteHandler{hub: hub, logger: logger}
}

func (h *NoteHandler) workspace(c echo.Context) *services.Workspace {
	if claims := getClaims(c); claims != nil {
		return h.hub.ForUser(claims.UserID, claims.Email)
	}
	return h.hub.Guest()
}

// List godoc
// @Summary List notes, newest first
// @Tags notes
// @Produce json
// @Success 200 {object} NoteListResponse
// @Router /notes [get]
func (h *NoteHandler) List(c echo.Context) error {
	ws := h.workspace(c)
	return c.JSON(http.StatusOK, NoteListResponse{
		Notes:   ws.Notes.Snapshot(),
		Loading: ws.Notes.Loading(),
		Mode:    ws.Notes.Mode().String(),
	})
}

// Create godoc
// @Summary Create a note
// @Tags notes
// @Accept json
// @Produce json
// @Param request body ports.AddNoteRequest true "Note details"
// @Success 201 {object} entities.Note
// @Router /notes [post]
func (h *NoteHandler) Create(c echo.Context) error {
	var req ports.AddNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	note, err := h.workspace(c).Notes.Add(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create note failed", "error", err)
		return noteError(err)
	}

	return c.JSON(http.StatusCreated, note)
}

// Update godoc
// @Summary Apply a partial update to a note
// @Tags notes
// @Accept json
// @Param id path string true "Note ID"
// @Param request body ports.NotePatch true "Fields to change"
// @Success 204
// @Router /notes/{id} [patch]
func (h *NoteHandler) Update(c echo.Context) error {
	var patch ports.NotePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	id := c.Param("id")
	if err := h.workspace(c).Notes.Update(c.Request().Context(), id, patch); err != nil {
		h.logger.Errorw("Update note failed", "error", err, "note_id", id)
		return noteError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// TogglePin godoc
// @Summary Flip a note's pinned flag
// @Tags notes
// @Param id path string true "Note ID"
// @Success 204
// @Router /notes/{id}/pin [post]
func (h *NoteHandler) TogglePin(c echo.Context) error {
	id := c.Param("id")
	if err := h.workspace(c).Notes.TogglePin(c.Request().Context(), id); err != nil {
		h.logger.Errorw("Toggle pin failed", "error", err, "note_id", id)
		return noteError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Delete godoc
// @Summary Delete a note
// @Tags notes
// @Param id path string true "Note ID"
// @Success 204
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.workspace(c).Notes.Delete(c.Request().Context(), id); err != nil {
		h.logger.Errorw("Delete note failed", "error", err, "note_id", id)
		return noteError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Stream godoc
// @Summary Subscribe to note snapshots over server-sent events
// @Tags notes
// @Produce text/event-stream
// @Success 200
// @Router /notes/stream [get]
func (h *NoteHandler) Stream(c echo.Context) error {
	ws := h.workspace(c)

	events := make(chan []entities.Note, 1)
	stop := ws.Notes.Watch(func(notes []entities.Note) {
		select {
		case events <- notes:
		default:
			select {
			case <-events:
			default:
			}
			select {
			case events <- notes:
			default:
			}
		}
	})
	defer stop()

	w := prepareSSE(c)
	if err := writeSSE(w, ws.Notes.Snapshot()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case notes := <-events:
			if err := writeSSE(w, notes); err != nil {
				return nil
			}
		}
	}
}

func noteError(err error) error {
	switch {
	case errors.Is(err, entities.ErrNoteNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Note not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Operation failed")
	}
}

type NoteListResponse struct {
	Notes   []entities.Note `json:"notes"`
	Loading bool            `json:"loading"`
	Mode    string          `json:"mode"`
}
