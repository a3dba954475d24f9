package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApprovalRepository approval record persistence
type ApprovalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository creates an approval repository
func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *ApprovalRepository) WithTx(tx *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: tx}
}

// CreatePending inserts pending records, skipping (checklist, manager) pairs that
// already exist
func (r *ApprovalRepository) CreatePending(ctx context.Context, records []entity.ApprovalRecord) error {
	if len(records) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checklist_id"}, {Name: "manager_id"}},
			DoNothing: true,
		}).
		Create(&records).Error)
}

// ListByChecklist all records of a checklist with their managers
func (r *ApprovalRepository) ListByChecklist(ctx context.Context, checklistID string) ([]entity.ApprovalRecord, error) {
	var records []entity.ApprovalRecord
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Where("checklist_id = ?", checklistID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// ManagerIDsByChecklist manager ids already holding a record for the checklist
func (r *ApprovalRepository) ManagerIDsByChecklist(ctx context.Context, checklistID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.ApprovalRecord{}).
		Where("checklist_id = ?", checklistID).
		Pluck("manager_id", &ids).Error
	return ids, err
}

// FindDecisive the record holding the manager decision for a checklist
func (r *ApprovalRepository) FindDecisive(ctx context.Context, checklistID string) (*entity.ApprovalRecord, error) {
	var rec entity.ApprovalRecord
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Where("checklist_id = ? AND status <> ? AND superseded = ?", checklistID, entity.ApprovalStatusPending, false).
		Order("responded_at ASC").
		First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// Decide moves the manager's own record out of pending. Returns rows changed;
// 0 means the manager holds no pending record for the checklist.
func (r *ApprovalRepository) Decide(ctx context.Context, checklistID, managerID, status, message, source string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.ApprovalRecord{}).
		Where("checklist_id = ? AND manager_id = ? AND status = ?", checklistID, managerID, entity.ApprovalStatusPending).
		Updates(map[string]interface{}{
			"status":           status,
			"superseded":       false,
			"response_message": message,
			"response_source":  source,
			"responded_at":     at,
			"updated_at":       at,
		})
	return result.RowsAffected, result.Error
}

// SupersedeSiblings closes every other pending record of the checklist
func (r *ApprovalRepository) SupersedeSiblings(ctx context.Context, checklistID, winnerManagerID, message string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.ApprovalRecord{}).
		Where("checklist_id = ? AND manager_id <> ? AND status = ?", checklistID, winnerManagerID, entity.ApprovalStatusPending).
		Updates(map[string]interface{}{
			"status":           entity.ApprovalStatusRejected,
			"superseded":       true,
			"response_message": message,
			"responded_at":     at,
			"updated_at":       at,
		})
	return result.RowsAffected, result.Error
}

// FindLatestPendingForManager most recently created pending record of a manager
func (r *ApprovalRepository) FindLatestPendingForManager(ctx context.Context, managerID string) (*entity.ApprovalRecord, error) {
	var rec entity.ApprovalRecord
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND status = ?", managerID, entity.ApprovalStatusPending).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// FindLatestSupersededForManager most recent record of a manager closed by
// another manager's decision at or after since
func (r *ApprovalRepository) FindLatestSupersededForManager(ctx context.Context, managerID string, since time.Time) (*entity.ApprovalRecord, error) {
	var rec entity.ApprovalRecord
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND superseded = ? AND responded_at >= ?", managerID, true, since).
		Order("responded_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// ListPendingForManager open approvals of a manager with checklist details
func (r *ApprovalRepository) ListPendingForManager(ctx context.Context, managerID string) ([]entity.ApprovalRecord, error) {
	var records []entity.ApprovalRecord
	err := r.db.WithContext(ctx).
		Preload("Checklist").
		Preload("Checklist.Employee").
		Preload("Checklist.Equipment").
		Where("manager_id = ? AND status = ?", managerID, entity.ApprovalStatusPending).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}
