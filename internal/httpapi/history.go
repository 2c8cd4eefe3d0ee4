package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tutordesk/internal/audit"
	"tutordesk/internal/history"
)

// historyFilter parses the shared query parameters for list and summary.
func historyFilter(c *gin.Context) (history.Filter, bool) {
	var f history.Filter
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, "from must be RFC 3339")
			return f, false
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, "to must be RFC 3339")
			return f, false
		}
		f.To = t
	}
	if v := c.Query("status"); v != "" {
		f.Status = history.CallStatus(v)
	}
	f.StudentName = c.Query("student")
	return f, true
}

func (h Handlers) ListHistory(c *gin.Context) {
	f, ok := historyFilter(c)
	if !ok {
		return
	}
	recs, err := h.History.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

func (h Handlers) HistorySummary(c *gin.Context) {
	f, ok := historyFilter(c)
	if !ok {
		return
	}
	sum, err := h.History.Summarize(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ClearHistory wipes the call log. Admin-only and audited; the record
// count removed goes into the audit trail.
func (h Handlers) ClearHistory(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	n, err := h.History.Clear(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionHistoryClear,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		Detail:      strconv.Itoa(n) + " records removed",
	})
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (h Handlers) ListAuditEvents(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}
	events, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
