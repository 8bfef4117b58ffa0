package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/editing"
)

// SessionManager opens and tracks edit sessions.
type SessionManager interface {
	Open(ctx context.Context, entryID int) (*editing.Session, error)
	Get(id string) (*editing.Session, error)
	Close(id string)
}

type openSessionRequest struct {
	EntryID int `json:"entryId" binding:"required,gt=0"`
}

type sessionResponse struct {
	editing.Snapshot
	Entry models.ProductionEntry `json:"entry"`
}

// EditSessionHandler exposes edit sessions and their live countdown.
type EditSessionHandler struct {
	sessions SessionManager
	logger   *zap.Logger
}

// NewEditSessionHandler constructs the HTTP handler adapter.
func NewEditSessionHandler(sessions SessionManager, logger *zap.Logger) *EditSessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditSessionHandler{sessions: sessions, logger: logger}
}

// Open starts an edit session for an entry.
func (h *EditSessionHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "entryId must be a positive integer", err)
		return
	}

	s, err := h.sessions.Open(c.Request.Context(), req.EntryID)
	if err != nil {
		respondError(c, h.logger, "open edit session", err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Snapshot: s.Snapshot(), Entry: s.Entry()})
}

// Get returns the current state of a session.
func (h *EditSessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Snapshot: s.Snapshot(), Entry: s.Entry()})
}

// Countdown streams session snapshots as server-sent events. Each stream is
// its own subscriber; the session is closed when the last one goes away.
func (h *EditSessionHandler) Countdown(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	updates, cancel := s.Subscribe()
	defer cancel()
	c.SSEvent("snapshot", s.Snapshot())
	clientGone := c.Stream(func(io.Writer) bool {
		select {
		case snap, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	if clientGone || c.Request.Context().Err() != nil {
		cancel()
		remaining := s.Subscribers()
		h.logger.Info("countdown stream disconnected", zap.String("session_id", s.ID), zap.Int("viewers", remaining))
		if remaining == 0 {
			h.sessions.Close(s.ID)
		}
	}
}

// Refresh re-queries the backend editability of the session's entry.
func (h *EditSessionHandler) Refresh(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := s.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "refresh edit session", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Submit sends the edited entry through the session's edit-window guard.
func (h *EditSessionHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	upd, photo, cleanup, ok := h.bindUpdate(c)
	if !ok {
		return
	}
	defer cleanup()

	entry, err := s.Submit(c.Request.Context(), upd, photo)
	if err != nil {
		respondError(c, h.logger, "submit entry update", err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Snapshot: s.Snapshot(), Entry: *entry})
}

// Close ends a session.
func (h *EditSessionHandler) Close(c *gin.Context) {
	h.sessions.Close(c.Param("sid"))
	c.Status(http.StatusNoContent)
}

func (h *EditSessionHandler) session(c *gin.Context) (*editing.Session, bool) {
	s, err := h.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, h.logger, "get edit session", err)
		return nil, false
	}
	return s, true
}

func (h *EditSessionHandler) bindUpdate(c *gin.Context) (models.EntryUpdate, *models.Photo, func(), bool) {
	if !isMultipart(c) {
		var upd models.EntryUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			badRequest(c, h.logger, "invalid request body", err)
			return models.EntryUpdate{}, nil, nil, false
		}
		return upd, nil, func() {}, true
	}

	in, err := models.ParseEntryForm(c.PostForm)
	if err != nil {
		respondError(c, h.logger, "parse entry form", err)
		return models.EntryUpdate{}, nil, nil, false
	}
	deletePhoto, _ := strconv.ParseBool(c.PostForm("deleteCurrentPhoto"))
	photo, cleanup, err := formPhoto(c)
	if err != nil {
		badRequest(c, h.logger, "unreadable photo", err)
		return models.EntryUpdate{}, nil, nil, false
	}
	return models.EntryUpdate{EntryInput: in, DeleteCurrentPhoto: deletePhoto}, photo, cleanup, true
}
