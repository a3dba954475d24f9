package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxNumberAttempts = 3

// ChecklistService checklist intake and reads
type ChecklistService struct {
	checklists *repository.ChecklistRepository
	employees  *repository.EmployeeRepository
	equipment  *repository.EquipmentRepository
	approvals  *repository.ApprovalRepository
	approval   *ApprovalService
	logger     *zap.Logger
}

// NewChecklistService creates the checklist service
func NewChecklistService(repos *repository.Repositories, approval *ApprovalService, logger *zap.Logger) *ChecklistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChecklistService{
		checklists: repos.Checklist,
		employees:  repos.Employee,
		equipment:  repos.Equipment,
		approvals:  repos.Approval,
		approval:   approval,
		logger:     logger,
	}
}

// SubmitChecklistReq mobile checklist submission
type SubmitChecklistReq struct {
	EmployeeID      string         `json:"employee_id" binding:"required"`
	EquipmentID     string         `json:"equipment_id" binding:"required"`
	Action          string         `json:"action" binding:"required"`
	Responses       datatypes.JSON `json:"responses"`
	Observations    string         `json:"observations"`
	HasIssues       bool           `json:"has_issues"`
	DeviceTimestamp *time.Time     `json:"device_timestamp"`
}

// SubmitResult created checklist and its fan-out outcome
type SubmitResult struct {
	Checklist *entity.Checklist `json:"checklist"`
	FanOut    *FanOutResult     `json:"fan_out,omitempty"`
}

// Submit stores a new pending checklist and requests approval from every active
// manager. When fan-out fails the checklist is still returned together with the
// error; it stays pending and fan-out can be retried.
func (s *ChecklistService) Submit(ctx context.Context, req *SubmitChecklistReq) (*SubmitResult, error) {
	if !entity.IsValidAction(req.Action) {
		return nil, fmt.Errorf("%w: action must be %q or %q", ErrInvalidInput, entity.ActionTaking, entity.ActionReturning)
	}
	employee, err := s.employees.FindByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown employee %s", ErrInvalidInput, req.EmployeeID)
		}
		return nil, persistenceError("load employee", err)
	}
	equipment, err := s.equipment.FindByID(ctx, req.EquipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown equipment %s", ErrInvalidInput, req.EquipmentID)
		}
		return nil, persistenceError("load equipment", err)
	}

	checklist := &entity.Checklist{
		ID:              uuid.New().String(),
		EmployeeID:      employee.ID,
		EquipmentID:     equipment.ID,
		Action:          req.Action,
		Responses:       req.Responses,
		Observations:    req.Observations,
		HasIssues:       req.HasIssues,
		DeviceTimestamp: req.DeviceTimestamp,
		Status:          entity.ChecklistStatusPending,
	}

	for attempt := 1; ; attempt++ {
		number, err := s.checklists.NextNumber(ctx)
		if err != nil {
			return nil, persistenceError("allocate checklist number", err)
		}
		checklist.Number = number
		checklist.Code = fmt.Sprintf("CHK_%d", number)

		err = s.checklists.Create(ctx, checklist)
		if err == nil {
			break
		}
		if !repository.IsDuplicate(err) || attempt >= maxNumberAttempts {
			s.logger.Error("Checklist insert failed", zap.String("code", checklist.Code), zap.Error(err))
			return nil, persistenceError("create checklist", err)
		}
		s.logger.Debug("Checklist number taken, retrying", zap.Int("number", number))
	}

	checklist.Employee = employee
	checklist.Equipment = equipment

	s.logger.Info("Checklist submitted",
		zap.String("code", checklist.Code),
		zap.String("action", checklist.Action),
		zap.String("equipment_id", checklist.EquipmentID),
		zap.Bool("has_issues", checklist.HasIssues))

	result := &SubmitResult{Checklist: checklist}
	fanOut, err := s.approval.CreateApprovalRequest(ctx, checklist.ID)
	if err != nil {
		return result, fmt.Errorf("checklist %s saved, approval request failed: %w", checklist.Code, err)
	}
	result.FanOut = fanOut
	return result, nil
}

// Get checklist with approval records
func (s *ChecklistService) Get(ctx context.Context, id string) (*entity.Checklist, error) {
	c, err := s.checklists.FindWithApprovals(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChecklistNotFound
		}
		return nil, persistenceError("load checklist", err)
	}
	return c, nil
}

// RetryFanOut re-runs the approval request for managers still missing a record
func (s *ChecklistService) RetryFanOut(ctx context.Context, id string) (*FanOutResult, error) {
	return s.approval.CreateApprovalRequest(ctx, id)
}

// ListPendingForManager open approvals of a manager, newest first
func (s *ChecklistService) ListPendingForManager(ctx context.Context, managerID string) ([]entity.ApprovalRecord, error) {
	records, err := s.approvals.ListPendingForManager(ctx, managerID)
	if err != nil {
		return nil, persistenceError("list pending approvals", err)
	}
	return records, nil
}
