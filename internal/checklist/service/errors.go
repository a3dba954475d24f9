package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrManagerNotFound no active manager matches the caller identity
	ErrManagerNotFound = errors.New("manager not found")
	// ErrNoPendingApproval the manager holds no open approval to act on
	ErrNoPendingApproval = errors.New("no pending approval")
	// ErrAlreadyResolved another decision was committed first
	ErrAlreadyResolved = errors.New("checklist already resolved")
	// ErrChecklistNotFound unknown checklist id
	ErrChecklistNotFound = errors.New("checklist not found")
	// ErrPersistence the store rejected a write; the checklist is left pending
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidInput request failed validation
	ErrInvalidInput = errors.New("invalid input")
)

// AlreadyResolvedError carries who decided a checklist so the late responder can
// be told. errors.Is(err, ErrAlreadyResolved) holds.
type AlreadyResolvedError struct {
	ChecklistID   string
	ChecklistCode string
	ResolverID    string
	ResolverName  string
	Source        string
	Approved      bool
	RespondedAt   *time.Time
}

func (e *AlreadyResolvedError) Error() string {
	decision := "rejected"
	if e.Approved {
		decision = "approved"
	}
	return fmt.Sprintf("checklist %s already %s by %s via %s", e.ChecklistCode, decision, e.ResolverName, e.Source)
}

func (e *AlreadyResolvedError) Is(target error) bool {
	return target == ErrAlreadyResolved
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
