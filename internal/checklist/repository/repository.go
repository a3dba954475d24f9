package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes
const (
	PgErrUniqueViolation = "23505"
)

// errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories repository set
type Repositories struct {
	Checklist *ChecklistRepository
	Employee  *EmployeeRepository
	Equipment *EquipmentRepository
	Manager   *ManagerRepository
	Approval  *ApprovalRepository
}

// NewRepositories creates the repository set
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Checklist: NewChecklistRepository(db),
		Employee:  NewEmployeeRepository(db),
		Equipment: NewEquipmentRepository(db),
		Manager:   NewManagerRepository(db),
		Approval:  NewApprovalRepository(db),
	}
}

// translate maps driver errors onto the package sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if IsDuplicate(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// IsDuplicate reports a unique constraint violation from postgres or sqlite
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == PgErrUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
