package handler

import (
	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/gin-gonic/gin"
)

// ChecklistHandler checklist intake and reads
type ChecklistHandler struct {
	svc *service.ChecklistService
}

// NewChecklistHandler creates the checklist handler
func NewChecklistHandler(svc *service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{svc: svc}
}

// Submit creates a checklist and requests approval
// POST /api/v1/checklists
func (h *ChecklistHandler) Submit(c *gin.Context) {
	var req service.SubmitChecklistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parâmetros inválidos: "+err.Error())
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		if result != nil && result.Checklist != nil {
			// saved but not fanned out: report with the id so the caller can retry
			ErrorWithData(c, 50200, "Checklist salvo, falha ao solicitar aprovação", gin.H{
				"checklist": result.Checklist,
				"error":     err.Error(),
			})
			return
		}
		serviceError(c, err)
		return
	}
	Created(c, result)
}

// Get checklist with approval records
// GET /api/v1/checklists/:id
func (h *ChecklistHandler) Get(c *gin.Context) {
	checklist, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Success(c, checklist)
}

// RetryApprovalRequest re-runs fan-out for managers without a record
// POST /api/v1/checklists/:id/approval-requests
func (h *ChecklistHandler) RetryApprovalRequest(c *gin.Context) {
	result, err := h.svc.RetryFanOut(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Success(c, result)
}
