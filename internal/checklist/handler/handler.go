package handler

import (
	"errors"

	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/bitfantasy/equipcheck/internal/checklist/sse"
	"github.com/gin-gonic/gin"
)

// Handlers handler set
type Handlers struct {
	Approval  *ApprovalHandler
	Webhook   *WebhookHandler
	Checklist *ChecklistHandler
	Manager   *ManagerHandler
	SSE       *SSEHandler
}

// NewHandlers creates the handler set
func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Approval:  NewApprovalHandler(svc.Router, svc.Checklist),
		Webhook:   NewWebhookHandler(svc.Router),
		Checklist: NewChecklistHandler(svc.Checklist),
		Manager:   NewManagerHandler(svc.Managers),
		SSE:       NewSSEHandler(hub),
	}
}

// Response common response envelope
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 200 response
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 response
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error error response; the HTTP status is code/100
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData error response carrying details
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// GetUserID user id from the JWT context
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetManagerID manager id bound to the session, empty for non-managers
func GetManagerID(c *gin.Context) string {
	managerID, _ := c.Get("manager_id")
	if id, ok := managerID.(string); ok {
		return id
	}
	return ""
}

func isAdmin(c *gin.Context) bool {
	roles, _ := c.Get("roles")
	list, _ := roles.([]string)
	for _, r := range list {
		if r == "admin" {
			return true
		}
	}
	return false
}

// alreadyResolvedData conflict details shown to the late responder
func alreadyResolvedData(are *service.AlreadyResolvedError) gin.H {
	return gin.H{
		"checklist_id":   are.ChecklistID,
		"checklist_code": are.ChecklistCode,
		"resolver_name":  are.ResolverName,
		"source":         are.Source,
		"approved":       are.Approved,
		"responded_at":   are.RespondedAt,
	}
}

// serviceError maps service errors onto the response envelope
func serviceError(c *gin.Context, err error) {
	var are *service.AlreadyResolvedError
	switch {
	case errors.As(err, &are):
		ErrorWithData(c, 40900, "Checklist já foi respondido", alreadyResolvedData(are))
	case errors.Is(err, service.ErrAlreadyResolved):
		Error(c, 40900, "Checklist já foi respondido")
	case errors.Is(err, service.ErrInvalidInput):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrChecklistNotFound):
		NotFound(c, "Checklist não encontrado")
	case errors.Is(err, service.ErrManagerNotFound):
		NotFound(c, "Gestor não encontrado")
	case errors.Is(err, service.ErrNoPendingApproval):
		NotFound(c, "Nenhuma aprovação pendente")
	default:
		InternalError(c, "Erro interno: "+err.Error())
	}
}
