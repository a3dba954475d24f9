package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/bitfantasy/equipcheck/internal/shared/whatsapp"
	"github.com/gin-gonic/gin"
)

// WebhookHandler WhatsApp gateway callbacks. Responses use the gateway's
// {success, message} shape instead of the dashboard envelope.
type WebhookHandler struct {
	router *service.ResponseRouter
}

// NewWebhookHandler creates the webhook handler
func NewWebhookHandler(router *service.ResponseRouter) *WebhookHandler {
	return &WebhookHandler{router: router}
}

// WebhookResult gateway-facing result
type WebhookResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ChecklistCode string `json:"checklist_code,omitempty"`
	ResolverName  string `json:"resolver_name,omitempty"`
}

// ApprovalReply handles a manager's WhatsApp answer
// POST /api/v1/webhooks/whatsapp/approval
//
// Every processed outcome answers 200 so the gateway does not retry it; only
// malformed bodies (400) and persistence failures (500) use error statuses.
func (h *WebhookHandler) ApprovalReply(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResult{Message: "invalid body"})
		return
	}
	reply, err := whatsapp.ParseApprovalReply(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResult{Message: err.Error()})
		return
	}

	res, err := h.router.ProcessWhatsAppResponse(c.Request.Context(), service.WhatsAppResponse{
		PhoneNumber: reply.PhoneNumber,
		Approved:    reply.Approved,
		Timestamp:   reply.Timestamp,
	})

	var are *service.AlreadyResolvedError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, WebhookResult{
			Success:       true,
			Message:       "response recorded",
			ChecklistCode: res.ChecklistCode,
			ResolverName:  res.ApprovedBy,
		})
	case errors.Is(err, service.ErrDuplicateDelivery):
		c.JSON(http.StatusOK, WebhookResult{Success: true, Message: "duplicate delivery ignored"})
	case errors.As(err, &are):
		c.JSON(http.StatusOK, WebhookResult{
			Message:       "checklist already resolved",
			ChecklistCode: are.ChecklistCode,
			ResolverName:  are.ResolverName,
		})
	case errors.Is(err, service.ErrManagerNotFound), errors.Is(err, service.ErrNoPendingApproval):
		// identity failures stay generic
		c.JSON(http.StatusOK, WebhookResult{Message: "no pending approval for sender"})
	case errors.Is(err, service.ErrPersistence):
		c.JSON(http.StatusInternalServerError, WebhookResult{Message: "internal error"})
	default:
		c.JSON(http.StatusOK, WebhookResult{Message: "response not processed"})
	}
}
