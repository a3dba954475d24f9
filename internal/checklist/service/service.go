package service

import (
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/bitfantasy/equipcheck/internal/checklist/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services service set
type Services struct {
	Managers   *ManagerDirectory
	Dispatcher *Dispatcher
	Projector  *EquipmentProjector
	Approval   *ApprovalService
	Router     *ResponseRouter
	Checklist  *ChecklistService
}

// Options optional collaborators and tuning
type Options struct {
	Guard              DeliveryGuard
	Hub                *sse.Hub
	LateResponseWindow time.Duration
}

// NewServices wires the service set
func NewServices(db *gorm.DB, repos *repository.Repositories, sender Sender, opts Options, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	managers := NewManagerDirectory(repos.Manager)
	dispatcher := NewDispatcher(sender, logger.Named("dispatcher"))
	projector := NewEquipmentProjector(repos.Equipment, logger.Named("projector"))
	approval := NewApprovalService(db, repos, managers, projector, dispatcher, opts.Hub, logger.Named("approval"))
	router := NewResponseRouter(managers, repos.Approval, approval, dispatcher, opts.Guard, opts.LateResponseWindow, logger.Named("router"))

	return &Services{
		Managers:   managers,
		Dispatcher: dispatcher,
		Projector:  projector,
		Approval:   approval,
		Router:     router,
		Checklist:  NewChecklistService(repos, approval, logger.Named("checklist")),
	}
}
