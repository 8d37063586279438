package invalidation

import (
	"context"
	"sync"
)

// memoryRepository keeps invalidations in process, for deployments
// without MongoDB. History is lost on restart.
type memoryRepository struct {
	lock   sync.Mutex
	latest map[string]InvalidationModel
}

var _ Repository = (*memoryRepository)(nil)

func NewMemoryRepository() Repository {
	return &memoryRepository{latest: make(map[string]InvalidationModel)}
}

func (r *memoryRepository) CreateInvalidation(ctx context.Context, invalidation InvalidationModel) error {
	if err := validate(invalidation); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if previous, exists := r.latest[invalidation.ProjectName]; exists && previous.InvalidationDate.After(invalidation.InvalidationDate) {
		return nil
	}

	r.latest[invalidation.ProjectName] = invalidation
	return nil
}

func (r *memoryRepository) GetLatestInvalidation(ctx context.Context, projectName string) (InvalidationModel, error) {
	if projectName == "" {
		return InvalidationModel{}, ErrProjectNameNotAllowed
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	invalidation, exists := r.latest[projectName]
	if !exists {
		return InvalidationModel{}, ErrProjectNotFound
	}

	return invalidation, nil
}
