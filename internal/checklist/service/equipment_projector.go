package service

import (
	"context"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"go.uber.org/zap"
)

// EquipmentProjector derives equipment availability from an approved checklist
type EquipmentProjector struct {
	repo   *repository.EquipmentRepository
	logger *zap.Logger
}

// NewEquipmentProjector creates the projector
func NewEquipmentProjector(repo *repository.EquipmentRepository, logger *zap.Logger) *EquipmentProjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentProjector{repo: repo, logger: logger}
}

// TargetStatus the equipment status an approved action leads to; ok is false
// for actions that do not move equipment.
func TargetStatus(action string, hasIssues bool) (status string, ok bool) {
	switch action {
	case entity.ActionTaking:
		return entity.EquipmentStatusInUse, true
	case entity.ActionReturning:
		if hasIssues {
			return entity.EquipmentStatusMaintenance, true
		}
		return entity.EquipmentStatusAvailable, true
	}
	return "", false
}

// UpdateEquipmentStatus applies the approved action to the equipment. Failures are
// logged only: the approval record is the source of truth.
func (p *EquipmentProjector) UpdateEquipmentStatus(ctx context.Context, equipmentID, action string, hasIssues bool, approvedBy string) (string, bool) {
	status, ok := TargetStatus(action, hasIssues)
	if !ok {
		p.logger.Warn("Equipment projection skipped: unknown action",
			zap.String("equipment_id", equipmentID), zap.String("action", action))
		return "", false
	}

	if err := p.repo.UpdateStatus(ctx, equipmentID, status, approvedBy); err != nil {
		p.logger.Error("Equipment status update failed",
			zap.String("equipment_id", equipmentID), zap.String("status", status), zap.Error(err))
		return "", false
	}

	p.logger.Info("Equipment status updated",
		zap.String("equipment_id", equipmentID), zap.String("status", status), zap.String("approved_by", approvedBy))
	return status, true
}
