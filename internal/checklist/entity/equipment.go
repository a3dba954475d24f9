package entity

import "time"

// Equipment status values
const (
	EquipmentStatusAvailable   = "available"
	EquipmentStatusInUse       = "in_use"
	EquipmentStatusMaintenance = "maintenance"
)

// Equipment physical asset
type Equipment struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Code           string    `json:"code" gorm:"size:50;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:200;not null"`
	Status         string    `json:"status" gorm:"size:20;not null;default:'available'"`
	LastApprovedBy string    `json:"last_approved_by" gorm:"size:100"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Equipment) TableName() string {
	return "equipment"
}
