package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- Call sessions ---
//
// Each operator has at most one session. All endpoints act on the
// caller's own session; there is no cross-operator access.

type startCallRequest struct {
	StudentID string `json:"student_id"`
}

func (h Handlers) StartCall(c *gin.Context) {
	userID, name, _, ok := identity(c)
	if !ok {
		return
	}

	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.StudentID == "" {
		badRequest(c, "student_id required")
		return
	}

	student, err := h.Directory.GetStudent(c.Request.Context(), req.StudentID)
	if err != nil {
		fail(c, err)
		return
	}

	s, err := h.Sessions.Start(c.Request.Context(), userID, name, student)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.Snapshot())
}

func (h Handlers) CurrentCall(c *gin.Context) {
	userID, _, _, ok := identity(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Current(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h Handlers) CancelCall(c *gin.Context) {
	userID, _, _, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Sessions.Cancel(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}
	s, err := h.Sessions.Current(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h Handlers) HangupCall(c *gin.Context) {
	userID, _, _, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Sessions.Hangup(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}
	s, err := h.Sessions.Current(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h Handlers) ResetCall(c *gin.Context) {
	userID, _, _, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Sessions.Reset(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
