package handler

import (
	"github.com/bitfantasy/equipcheck/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the checklist API under v1 (/api/v1)
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers, jwtSecret, webhookSecret string) {
	// gateway callbacks, static bearer secret
	webhooks := v1.Group("/webhooks", middleware.WebhookAuth(webhookSecret))
	{
		webhooks.POST("/whatsapp/approval", h.Webhook.ApprovalReply)
	}

	authorized := v1.Group("", middleware.JWTAuth(jwtSecret))
	{
		checklists := authorized.Group("/checklists")
		{
			checklists.POST("", h.Checklist.Submit)
			checklists.GET("/:id", h.Checklist.Get)
			checklists.POST("/:id/approval-requests", middleware.RequireRole("admin"), h.Checklist.RetryApprovalRequest)
		}

		approvals := authorized.Group("/approvals")
		{
			approvals.POST("/respond", h.Approval.Respond)
			approvals.GET("/pending", h.Approval.ListPending)
		}

		authorized.GET("/managers", h.Manager.List)
		authorized.GET("/sse/events", h.SSE.Stream)
	}
}
