package repository

import (
	"context"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"gorm.io/gorm"
)

// ManagerRepository manager reads
type ManagerRepository struct {
	db *gorm.DB
}

// NewManagerRepository creates a manager repository
func NewManagerRepository(db *gorm.DB) *ManagerRepository {
	return &ManagerRepository{db: db}
}

// ListActive active managers ordered by name
func (r *ManagerRepository) ListActive(ctx context.Context) ([]entity.Manager, error) {
	var managers []entity.Manager
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&managers).Error
	return managers, err
}

// FindActiveByID active manager by id
func (r *ManagerRepository) FindActiveByID(ctx context.Context, id string) (*entity.Manager, error) {
	var m entity.Manager
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// FindActiveByPhone active manager by stored (normalised) phone
func (r *ManagerRepository) FindActiveByPhone(ctx context.Context, phone string) (*entity.Manager, error) {
	var m entity.Manager
	err := r.db.WithContext(ctx).Where("phone = ? AND active = ?", phone, true).First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}
