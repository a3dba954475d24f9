package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/bitfantasy/equipcheck/internal/shared/whatsapp"
)

// ManagerDirectory active managers eligible to approve
type ManagerDirectory struct {
	repo *repository.ManagerRepository
}

// NewManagerDirectory creates the directory
func NewManagerDirectory(repo *repository.ManagerRepository) *ManagerDirectory {
	return &ManagerDirectory{repo: repo}
}

// ListActive active managers ordered by name
func (d *ManagerDirectory) ListActive(ctx context.Context) ([]entity.Manager, error) {
	managers, err := d.repo.ListActive(ctx)
	if err != nil {
		return nil, persistenceError("list active managers", err)
	}
	return managers, nil
}

// FindByID active manager by id
func (d *ManagerDirectory) FindByID(ctx context.Context, id string) (*entity.Manager, error) {
	if id == "" {
		return nil, ErrManagerNotFound
	}
	m, err := d.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrManagerNotFound
		}
		return nil, persistenceError("find manager", err)
	}
	return m, nil
}

// FindByPhone active manager whose phone normalises to the same key. Rows saved
// before phones were normalised are matched by scanning the active set.
func (d *ManagerDirectory) FindByPhone(ctx context.Context, phone string) (*entity.Manager, error) {
	key := whatsapp.NormalizePhone(phone)
	if key == "" {
		return nil, fmt.Errorf("%w: empty phone", ErrManagerNotFound)
	}

	m, err := d.repo.FindActiveByPhone(ctx, key)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistenceError("find manager by phone", err)
	}

	managers, err := d.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range managers {
		if whatsapp.NormalizePhone(managers[i].Phone) == key {
			return &managers[i], nil
		}
	}
	return nil, ErrManagerNotFound
}

// ListActiveExcept active managers other than excludeID
func (d *ManagerDirectory) ListActiveExcept(ctx context.Context, excludeID string) ([]entity.Manager, error) {
	managers, err := d.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]entity.Manager, 0, len(managers))
	for _, m := range managers {
		if m.ID != excludeID {
			others = append(others, m)
		}
	}
	return others, nil
}
