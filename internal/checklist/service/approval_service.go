package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/bitfantasy/equipcheck/internal/checklist/sse"
	"github.com/bitfantasy/equipcheck/internal/shared/whatsapp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApprovalService fans approval requests out to managers and resolves the first
// decisive response
type ApprovalService struct {
	db         *gorm.DB
	checklists *repository.ChecklistRepository
	approvals  *repository.ApprovalRepository
	managers   *ManagerDirectory
	projector  *EquipmentProjector
	dispatcher *Dispatcher
	hub        *sse.Hub
	logger     *zap.Logger
	now        func() time.Time
}

// NewApprovalService creates the approval service. hub may be nil.
func NewApprovalService(db *gorm.DB, repos *repository.Repositories, managers *ManagerDirectory,
	projector *EquipmentProjector, dispatcher *Dispatcher, hub *sse.Hub, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		db:         db,
		checklists: repos.Checklist,
		approvals:  repos.Approval,
		managers:   managers,
		projector:  projector,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		now:        time.Now,
	}
}

// FanOutResult outcome of CreateApprovalRequest
type FanOutResult struct {
	ChecklistCode string `json:"checklist_code"`
	Records       int    `json:"records"`
	Notified      int    `json:"notified"`
	Failed        int    `json:"failed"`
}

// CreateApprovalRequest creates one pending record per active manager and asks
// each of them to decide. Managers that already hold a record are skipped, so
// retrying after a partial failure never duplicates records or messages. The
// insert runs under a lock on the checklist row and is dropped when a decision
// committed first; prompts go out only after commit.
func (s *ApprovalService) CreateApprovalRequest(ctx context.Context, checklistID string) (*FanOutResult, error) {
	checklist, err := s.loadChecklist(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	result := &FanOutResult{ChecklistCode: checklist.Code}

	if checklist.IsResolved() {
		s.logger.Info("Fan-out skipped: checklist already resolved", zap.String("checklist", checklist.Code))
		return result, nil
	}

	managers, err := s.managers.ListActive(ctx)
	if err != nil {
		s.logger.Error("Fan-out failed to load managers", zap.String("checklist", checklist.Code), zap.Error(err))
		return nil, err
	}
	if len(managers) == 0 {
		s.logger.Warn("No active managers, checklist has no approvers", zap.String("checklist", checklist.Code))
		return result, nil
	}

	var (
		recipients []entity.Manager
		resolved   bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checklists := s.checklists.WithTx(tx)
		approvals := s.approvals.WithTx(tx)

		open, err := checklists.LockOpen(ctx, checklist.ID)
		if err != nil {
			return persistenceError("lock checklist", err)
		}
		if !open {
			resolved = true
			return nil
		}

		existing, err := approvals.ManagerIDsByChecklist(ctx, checklist.ID)
		if err != nil {
			return persistenceError("load approval records", err)
		}
		var records []entity.ApprovalRecord
		records, recipients = s.newPendingRecords(checklist.ID, managers, existing)

		if err := approvals.CreatePending(ctx, records); err != nil {
			return persistenceError("create approval records", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Fan-out insert failed", zap.String("checklist", checklist.Code), zap.Error(err))
		return nil, err
	}
	if resolved {
		s.logger.Info("Fan-out skipped: checklist resolved concurrently", zap.String("checklist", checklist.Code))
		return result, nil
	}
	result.Records = len(recipients)

	report := s.dispatcher.NotifyChecklistSubmission(ctx, recipients, summaryOf(checklist))
	result.Notified = report.Sent
	result.Failed = report.Failed

	s.logger.Info("Approval requested",
		zap.String("checklist", checklist.Code),
		zap.Int("records", result.Records),
		zap.Int("notified", result.Notified),
		zap.Int("failed", result.Failed))

	return result, nil
}

// newPendingRecords builds a pending record for every manager not in existing
func (s *ApprovalService) newPendingRecords(checklistID string, managers []entity.Manager, existing []string) ([]entity.ApprovalRecord, []entity.Manager) {
	has := make(map[string]bool, len(existing))
	for _, id := range existing {
		has[id] = true
	}

	now := s.now()
	var (
		records    []entity.ApprovalRecord
		recipients []entity.Manager
	)
	for _, m := range managers {
		if has[m.ID] {
			continue
		}
		records = append(records, entity.ApprovalRecord{
			ID:          uuid.New().String(),
			ChecklistID: checklistID,
			ManagerID:   m.ID,
			Status:      entity.ApprovalStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		recipients = append(recipients, m)
	}
	return records, recipients
}

// Decision a manager's answer on a checklist, identity already resolved
type Decision struct {
	ChecklistID     string
	Manager         *entity.Manager
	Approved        bool
	ResponseMessage string
	Source          string
	RespondedAt     time.Time
}

// Resolution outcome of a committed decision
type Resolution struct {
	ChecklistID     string         `json:"checklist_id"`
	ChecklistCode   string         `json:"checklist_code"`
	ApprovalStatus  string         `json:"approval_status"`
	ApprovedBy      string         `json:"approved_by"`
	Source          string         `json:"source"`
	Superseded      int64          `json:"superseded"`
	EquipmentStatus string         `json:"equipment_status,omitempty"`
	Broadcast       DispatchReport `json:"broadcast"`
}

// Resolve commits the first decisive response for a checklist. The claim on the
// checklist row, the caller's own record and the supersession of every sibling
// record happen in one transaction guarded by a conditional update, so exactly
// one concurrent caller wins; the rest get *AlreadyResolvedError and change nothing.
func (s *ApprovalService) Resolve(ctx context.Context, d Decision) (*Resolution, error) {
	if d.Manager == nil {
		return nil, ErrManagerNotFound
	}
	if d.Source != entity.ResponseSourceWeb && d.Source != entity.ResponseSourceWhatsApp {
		return nil, fmt.Errorf("%w: unknown response source %q", ErrInvalidInput, d.Source)
	}
	if d.RespondedAt.IsZero() {
		d.RespondedAt = s.now()
	}

	checklist, err := s.loadChecklist(ctx, d.ChecklistID)
	if err != nil {
		return nil, err
	}

	status := entity.ApprovalStatusRejected
	if d.Approved {
		status = entity.ApprovalStatusApproved
	}

	var superseded int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checklists := s.checklists.WithTx(tx)
		approvals := s.approvals.WithTx(tx)

		claimed, err := checklists.ClaimResolution(ctx, checklist.ID, repository.ResolutionFields{
			ApprovalStatus:   status,
			Status:           status,
			ApprovedBy:       d.Manager.Name,
			ApprovalResponse: d.ResponseMessage,
			ResolvedAt:       d.RespondedAt,
		})
		if err != nil {
			return persistenceError("claim checklist", err)
		}
		if claimed == 0 {
			return s.alreadyResolved(ctx, checklists, approvals, checklist)
		}

		decided, err := approvals.Decide(ctx, checklist.ID, d.Manager.ID, status, d.ResponseMessage, d.Source, d.RespondedAt)
		if err != nil {
			return persistenceError("record decision", err)
		}
		if decided == 0 {
			return ErrNoPendingApproval
		}

		superseded, err = approvals.SupersedeSiblings(ctx, checklist.ID, d.Manager.ID,
			whatsapp.SupersededMessage(d.Manager.Name, d.Approved), d.RespondedAt)
		if err != nil {
			return persistenceError("supersede sibling records", err)
		}
		return nil
	})
	if err != nil {
		s.logResolveError(checklist, d, err)
		return nil, err
	}

	res := &Resolution{
		ChecklistID:    checklist.ID,
		ChecklistCode:  checklist.Code,
		ApprovalStatus: status,
		ApprovedBy:     d.Manager.Name,
		Source:         d.Source,
		Superseded:     superseded,
	}

	s.logger.Info("Checklist resolved",
		zap.String("checklist", checklist.Code),
		zap.String("approval_status", status),
		zap.String("manager_id", d.Manager.ID),
		zap.String("source", d.Source),
		zap.Int64("superseded", superseded))

	s.afterResolve(ctx, checklist, d, res)
	return res, nil
}

// afterResolve runs the post-commit effects; none of them can undo the decision
func (s *ApprovalService) afterResolve(ctx context.Context, checklist *entity.Checklist, d Decision, res *Resolution) {
	if d.Approved {
		if status, ok := s.projector.UpdateEquipmentStatus(ctx, checklist.EquipmentID, checklist.Action, checklist.HasIssues, d.Manager.Name); ok {
			res.EquipmentStatus = status
		}
	}

	s.hub.PublishChecklistUpdate(sse.ChecklistUpdate{
		ChecklistID:    checklist.ID,
		Code:           checklist.Code,
		ApprovalStatus: res.ApprovalStatus,
		ApprovedBy:     res.ApprovedBy,
		Source:         res.Source,
	})

	others, err := s.managers.ListActiveExcept(ctx, d.Manager.ID)
	if err != nil {
		s.logger.Error("Resolution broadcast skipped: cannot load managers",
			zap.String("checklist", checklist.Code), zap.Error(err))
		return
	}
	res.Broadcast = s.dispatcher.NotifyApprovalResponse(ctx, others, d.Manager.Name, summaryOf(checklist), d.Approved)
}

// alreadyResolved builds the conflict error from the decisive record
func (s *ApprovalService) alreadyResolved(ctx context.Context, checklists *repository.ChecklistRepository,
	approvals *repository.ApprovalRepository, checklist *entity.Checklist) error {
	are := &AlreadyResolvedError{
		ChecklistID:   checklist.ID,
		ChecklistCode: checklist.Code,
	}

	rec, err := approvals.FindDecisive(ctx, checklist.ID)
	switch {
	case err == nil:
		are.Approved = rec.Status == entity.ApprovalStatusApproved
		are.Source = rec.ResponseSource
		are.RespondedAt = rec.RespondedAt
		are.ResolverID = rec.ManagerID
		if rec.Manager != nil {
			are.ResolverName = rec.Manager.Name
		}
	case errors.Is(err, repository.ErrNotFound):
		// resolved row without a decisive record: fall back to the checklist columns
		current, err := checklists.FindByID(ctx, checklist.ID)
		if err != nil {
			return persistenceError("load resolved checklist", err)
		}
		are.Approved = current.ApprovalStatus != nil && *current.ApprovalStatus == entity.ApprovalStatusApproved
		are.ResolverName = current.ApprovedBy
		are.RespondedAt = current.ResolvedAt
	default:
		return persistenceError("load decisive record", err)
	}
	return are
}

func (s *ApprovalService) logResolveError(checklist *entity.Checklist, d Decision, err error) {
	fields := []zap.Field{
		zap.String("checklist", checklist.Code),
		zap.String("manager_id", d.Manager.ID),
		zap.String("source", d.Source),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrNoPendingApproval):
		s.logger.Info("Decision not applied", fields...)
	default:
		s.logger.Error("Decision failed", fields...)
	}
}

func (s *ApprovalService) loadChecklist(ctx context.Context, id string) (*entity.Checklist, error) {
	if id == "" {
		return nil, ErrChecklistNotFound
	}
	c, err := s.checklists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChecklistNotFound
		}
		return nil, persistenceError("load checklist", err)
	}
	return c, nil
}
