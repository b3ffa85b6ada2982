package api

import (
	"net/http"

	"homekeys/server/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type sessionResponse struct {
	ID    string          `json:"id"`
	State selection.State `json:"state"`
}

type selectRequest struct {
	ID string `json:"id" binding:"required"`
}

type pageRequest struct {
	Page *int `json:"page" binding:"required"`
}

// session resolves the :id path parameter or writes a 404
func (h *Handler) session(c *gin.Context) (*selection.Session, bool) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}

func (h *Handler) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, sessionResponse{ID: s.ID, State: s.Do(nil)})
}

func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: s.ID, State: s.Do(nil)})
}

// DeleteSession discards the session and its conversation history
func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	h.journal.Forget(id)
	c.Status(http.StatusNoContent)
}

// SelectProperty opens the detail overlay for a listing. Unknown ids clear
// the selection instead.
func (h *Handler) SelectProperty(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Property id is required"})
		return
	}

	var selected bool
	state := s.Do(func(ctrl *selection.Controller) {
		selected = ctrl.Select(req.ID)
	})
	if !selected {
		h.logger.WithFields(logrus.Fields{
			"session_id":  s.ID,
			"property_id": req.ID,
		}).Debug("Selected unknown property, selection cleared")
	}

	c.JSON(http.StatusOK, gin.H{"id": s.ID, "state": state, "selected": selected})
}

func (h *Handler) ClearSelection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state := s.Do(func(ctrl *selection.Controller) { ctrl.Clear() })
	c.JSON(http.StatusOK, sessionResponse{ID: s.ID, State: state})
}

func (h *Handler) NextProperty(c *gin.Context) {
	h.step(c, (*selection.Controller).Next)
}

func (h *Handler) PreviousProperty(c *gin.Context) {
	h.step(c, (*selection.Controller).Previous)
}

func (h *Handler) step(c *gin.Context, move func(*selection.Controller) bool) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var moved bool
	state := s.Do(func(ctrl *selection.Controller) {
		moved = move(ctrl)
	})
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "state": state, "moved": moved})
}

func (h *Handler) SetPage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Page number is required"})
		return
	}

	state := s.Do(func(ctrl *selection.Controller) { ctrl.SetPage(*req.Page) })
	c.JSON(http.StatusOK, sessionResponse{ID: s.ID, State: state})
}

// GetView returns the list page, highlight flags and overlay for a session
func (h *Handler) GetView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Render())
}
