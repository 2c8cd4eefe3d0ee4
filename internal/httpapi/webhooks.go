package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutordesk/internal/telephony"
)

// TwilioStatusCallback feeds provider status callbacks into the bridge.
// Twilio retries on non-2xx, so the handler always acknowledges; unknown
// call SIDs are dropped by the bridge.
//
// NOTE: protect this route with Twilio signature validation when exposed
// publicly.
func TwilioStatusCallback(bridge *telephony.TwilioBridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.Status(http.StatusOK)
			return
		}
		bridge.HandleStatusCallback(c.Request.PostForm)
		c.Status(http.StatusOK)
	}
}
