package handler

import (
	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/gin-gonic/gin"
)

// ApprovalHandler dashboard approval endpoints
type ApprovalHandler struct {
	router     *service.ResponseRouter
	checklists *service.ChecklistService
}

// NewApprovalHandler creates the approval handler
func NewApprovalHandler(router *service.ResponseRouter, checklists *service.ChecklistService) *ApprovalHandler {
	return &ApprovalHandler{router: router, checklists: checklists}
}

// Respond records a manager decision from the dashboard
// POST /api/v1/approvals/respond
func (h *ApprovalHandler) Respond(c *gin.Context) {
	var req service.WebResponse
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parâmetros inválidos: "+err.Error())
		return
	}

	sessionManager := GetManagerID(c)
	if req.ManagerID == "" {
		req.ManagerID = sessionManager
	}
	if req.ManagerID == "" {
		BadRequest(c, "managerId é obrigatório")
		return
	}
	// a manager session may only answer for itself
	if sessionManager != "" && sessionManager != req.ManagerID && !isAdmin(c) {
		Forbidden(c, "Sessão não pertence a este gestor")
		return
	}

	res, err := h.router.ProcessWebResponse(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	Success(c, res)
}

// ListPending open approvals of a manager
// GET /api/v1/approvals/pending?manager_id=xxx
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	managerID := c.Query("manager_id")
	if managerID == "" {
		managerID = GetManagerID(c)
	}
	if managerID == "" {
		BadRequest(c, "manager_id é obrigatório")
		return
	}
	if own := GetManagerID(c); own != "" && own != managerID && !isAdmin(c) {
		Forbidden(c, "Sessão não pertence a este gestor")
		return
	}

	records, err := h.checklists.ListPendingForManager(c.Request.Context(), managerID)
	if err != nil {
		serviceError(c, err)
		return
	}
	Success(c, gin.H{"items": records, "total": len(records)})
}
