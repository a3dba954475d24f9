package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"gorm.io/gorm"
)

// EquipmentRepository equipment persistence
type EquipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates an equipment repository
func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// FindByID equipment by id
func (r *EquipmentRepository) FindByID(ctx context.Context, id string) (*entity.Equipment, error) {
	var eq entity.Equipment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&eq).Error; err != nil {
		return nil, translate(err)
	}
	return &eq, nil
}

// UpdateStatus sets the availability status and bumps updated_at
func (r *EquipmentRepository) UpdateStatus(ctx context.Context, id, status, approvedBy string) error {
	result := r.db.WithContext(ctx).Model(&entity.Equipment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"last_approved_by": approvedBy,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
