package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tutordesk/internal/audit"
	"tutordesk/internal/auth"
	"tutordesk/internal/directory"
	"tutordesk/internal/history"
	"tutordesk/internal/session"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Directory *directory.Service
	History   *history.Service
	Sessions  *session.Manager
	Audit     *audit.Service

	Clock func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// fail maps service errors onto HTTP statuses in one place so handlers
// stay uniform.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, directory.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, directory.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, directory.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, directory.ErrInvalidArgument),
		errors.Is(err, directory.ErrInvalidPhone),
		errors.Is(err, history.ErrInvalidRecord),
		errors.Is(err, history.ErrInvalidFilter):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionActive),
		errors.Is(err, session.ErrBadState):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrCallingDisabled),
		errors.Is(err, session.ErrCaptureUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// identity pulls the authenticated staff member off the request context.
func identity(c *gin.Context) (userID, name, role string, ok bool) {
	ctx := c.Request.Context()
	userID, err := auth.UserID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return "", "", "", false
	}
	name, _ = auth.Name(ctx)
	role, _ = auth.Role(ctx)
	return userID, name, role, true
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates credentials against the staff directory and issues a
// token pair. Failures are deliberately indistinct.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "email and password required")
		return
	}

	staff, err := h.Directory.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	pair, err := h.Auth.IssuePair(h.now(), staff.ID, staff.Name, staff.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"name":          staff.Name,
		"role":          staff.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh pair. The role comes from
// the directory, not the old token, so revoked staff lose access at the
// next refresh.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.RefreshToken == "" {
		badRequest(c, "refresh_token required")
		return
	}

	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	staff, err := h.Directory.GetStaff(c.Request.Context(), claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
		return
	}

	pair, err := h.Auth.IssuePair(h.now(), staff.ID, staff.Name, staff.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me reports the authenticated identity, mostly for the frontend's boot
// sequence.
func (h Handlers) Me(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "name": name, "role": role})
}
