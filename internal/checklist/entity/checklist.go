package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Checklist actions
const (
	ActionTaking    = "taking"
	ActionReturning = "returning"
)

// Checklist status values
const (
	ChecklistStatusPending  = "pending"
	ChecklistStatusApproved = "approved"
	ChecklistStatusRejected = "rejected"
)

// Checklist one equipment take/return submission
type Checklist struct {
	ID               string         `json:"id" gorm:"primaryKey;size:36"`
	Number           int            `json:"number" gorm:"uniqueIndex;not null"`
	Code             string         `json:"code" gorm:"size:32;uniqueIndex;not null"`
	EmployeeID       string         `json:"employee_id" gorm:"size:36;not null;index"`
	EquipmentID      string         `json:"equipment_id" gorm:"size:36;not null;index"`
	Action           string         `json:"action" gorm:"size:20;not null"`
	Responses        datatypes.JSON `json:"responses" gorm:"type:jsonb"`
	Observations     string         `json:"observations" gorm:"type:text"`
	HasIssues        bool           `json:"has_issues" gorm:"default:false"`
	DeviceTimestamp  *time.Time     `json:"device_timestamp"`
	Status           string         `json:"status" gorm:"size:20;not null;default:'pending'"`
	ApprovalStatus   *string        `json:"approval_status" gorm:"size:20"`
	ApprovedBy       string         `json:"approved_by" gorm:"size:100"`
	ApprovalResponse string         `json:"approval_response" gorm:"type:text"`
	ResolvedAt       *time.Time     `json:"resolved_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	// relations
	Employee        *Employee        `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	Equipment       *Equipment       `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
	ApprovalRecords []ApprovalRecord `json:"approval_records,omitempty" gorm:"foreignKey:ChecklistID"`
}

func (Checklist) TableName() string {
	return "checklists"
}

// IsResolved reports whether a manager decision has been committed
func (c *Checklist) IsResolved() bool {
	return c.ApprovalStatus != nil
}

// IsValidAction reports whether action is taking or returning
func IsValidAction(action string) bool {
	return action == ActionTaking || action == ActionReturning
}

// Employee the person taking or returning equipment
type Employee struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}
