package handler

import (
	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/gin-gonic/gin"
)

type ManagerHandler struct {
	directory *service.ManagerDirectory
}

func NewManagerHandler(directory *service.ManagerDirectory) *ManagerHandler {
	return &ManagerHandler{directory: directory}
}

// List active managers
// GET /api/v1/managers
func (h *ManagerHandler) List(c *gin.Context) {
	managers, err := h.directory.ListActive(c.Request.Context())
	if err != nil {
		InternalError(c, "Falha ao listar gestores: "+err.Error())
		return
	}
	Success(c, gin.H{"items": managers})
}
