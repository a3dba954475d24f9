package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChecklistRepository checklist persistence
type ChecklistRepository struct {
	db *gorm.DB
}

// NewChecklistRepository creates a checklist repository
func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *ChecklistRepository) WithTx(tx *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: tx}
}

// NextNumber returns the next sequential checklist number (starting at 1001)
func (r *ChecklistRepository) NextNumber(ctx context.Context) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&entity.Checklist{}).
		Select("COALESCE(MAX(number), 1000)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Create inserts a checklist
func (r *ChecklistRepository) Create(ctx context.Context, c *entity.Checklist) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

// FindByID checklist with employee and equipment
func (r *ChecklistRepository) FindByID(ctx context.Context, id string) (*entity.Checklist, error) {
	var c entity.Checklist
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Equipment").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindWithApprovals checklist with its approval records and their managers
func (r *ChecklistRepository) FindWithApprovals(ctx context.Context, id string) (*entity.Checklist, error) {
	var c entity.Checklist
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Equipment").
		Preload("ApprovalRecords", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("ApprovalRecords.Manager").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// LockOpen locks the checklist row for the rest of the transaction and reports
// whether it is still undecided. Run it through WithTx.
func (r *ChecklistRepository) LockOpen(ctx context.Context, id string) (bool, error) {
	var c entity.Checklist
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "approval_status").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return false, translate(err)
	}
	return !c.IsResolved(), nil
}

// ResolutionFields values written when a checklist is decided
type ResolutionFields struct {
	ApprovalStatus   string
	Status           string
	ApprovedBy       string
	ApprovalResponse string
	ResolvedAt       time.Time
}

// ClaimResolution writes the decision only while the checklist is still open:
// approval_status is NULL and no approval record has left pending. Returns the
// number of rows changed; 0 means another decision already holds the row.
func (r *ChecklistRepository) ClaimResolution(ctx context.Context, id string, f ResolutionFields) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Checklist{}).
		Where("id = ? AND approval_status IS NULL", id).
		Where("NOT EXISTS (SELECT 1 FROM approval_records ar WHERE ar.checklist_id = ? AND ar.status <> ?)",
			id, entity.ApprovalStatusPending).
		Updates(map[string]interface{}{
			"approval_status":   f.ApprovalStatus,
			"status":            f.Status,
			"approved_by":       f.ApprovedBy,
			"approval_response": f.ApprovalResponse,
			"resolved_at":       f.ResolvedAt,
			"updated_at":        f.ResolvedAt,
		})
	return result.RowsAffected, result.Error
}

// EmployeeRepository employee reads
type EmployeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates an employee repository
func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindByID employee by id
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*entity.Employee, error) {
	var e entity.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}
