package entity

import "time"

// Approval record status
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// Response channels
const (
	ResponseSourceWeb      = "web"
	ResponseSourceWhatsApp = "whatsapp"
)

// ApprovalRecord one manager's stake in a checklist decision.
// Superseded marks a record closed because another manager decided first.
type ApprovalRecord struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	ChecklistID     string     `json:"checklist_id" gorm:"size:36;not null;uniqueIndex:idx_approval_records_checklist_manager"`
	ManagerID       string     `json:"manager_id" gorm:"size:36;not null;uniqueIndex:idx_approval_records_checklist_manager;index"`
	Status          string     `json:"status" gorm:"size:20;not null;default:'pending';index"`
	Superseded      bool       `json:"superseded" gorm:"default:false"`
	ResponseMessage string     `json:"response_message" gorm:"type:text"`
	ResponseSource  string     `json:"response_source" gorm:"size:20"`
	RespondedAt     *time.Time `json:"responded_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// relations
	Manager   *Manager   `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Checklist *Checklist `json:"checklist,omitempty" gorm:"foreignKey:ChecklistID"`
}

func (ApprovalRecord) TableName() string {
	return "approval_records"
}

// IsDecisive reports whether the record holds a manager's own decision
func (r *ApprovalRecord) IsDecisive() bool {
	return r.Status != ApprovalStatusPending && !r.Superseded
}
