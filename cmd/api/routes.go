package main

import (
	"github.com/gin-gonic/gin"

	"tutordesk/internal/auth"
	"tutordesk/internal/httpapi"
	"tutordesk/internal/rbac"
	"tutordesk/internal/telephony"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal
// modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, twilio *telephony.TwilioBridge) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public). Registered only when the twilio bridge
	// is configured.
	if twilio != nil {
		r.POST("/webhooks/twilio/status", httpapi.TwilioStatusCallback(twilio))
	}

	v1 := r.Group("/v1")

	// token issuance is unauthenticated
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// everything else requires a valid access token
	api := v1.Group("")
	api.Use(auth.RequireAccessToken(h.Auth))
	{
		api.GET("/me", h.Me)

		students := api.Group("/students")
		{
			students.GET("", h.ListStudents)
			students.GET("/:id", h.GetStudent)
			students.POST("", h.CreateStudent)
			students.PATCH("/:id", h.UpdateStudent)
			students.DELETE("/:id", h.DeleteStudent)
		}

		// staff management is admin-only
		staff := api.Group("/staff")
		staff.Use(rbac.RequireAdmin())
		{
			staff.GET("", h.ListStaff)
			staff.POST("", h.CreateStaff)
			staff.PATCH("/:id", h.UpdateStaff)
			staff.DELETE("/:id", h.DeleteStaff)
		}

		hist := api.Group("/history")
		{
			hist.GET("", h.ListHistory)
			hist.GET("/summary", h.HistorySummary)
			hist.DELETE("", rbac.RequireAdmin(), h.ClearHistory)
		}

		calls := api.Group("/calls")
		calls.Use(rbac.RequireAnyRole(rbac.RoleOperator))
		{
			calls.POST("/start", h.StartCall)
			calls.GET("/current", h.CurrentCall)
			calls.POST("/cancel", h.CancelCall)
			calls.POST("/hangup", h.HangupCall)
			calls.POST("/reset", h.ResetCall)
		}

		admin := api.Group("/admin")
		admin.Use(rbac.RequireAdmin())
		{
			admin.GET("/audit", h.ListAuditEvents)
		}
	}
}
