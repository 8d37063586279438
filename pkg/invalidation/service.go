package invalidation

import (
	"context"
	"time"
)

type Service struct {
	repository  Repository
	invalidator Invalidator
}

func NewService(repository Repository, invalidator Invalidator) *Service {
	return &Service{repository, invalidator}
}

func (s *Service) GetLatestInvalidation(ctx context.Context, projectName string) (InvalidationModel, error) {
	if projectName == "" {
		return InvalidationModel{}, ErrProjectNameNotAllowed
	}

	return s.repository.GetLatestInvalidation(ctx, projectName)
}

// Invalidate removes every url from the caches and records the outcome,
// stopping at the first url that fails.
func (s *Service) Invalidate(ctx context.Context, projectName, latestCommitHash string, urls []string) (InvalidationModel, error) {
	if projectName == "" {
		return InvalidationModel{}, ErrProjectNameNotAllowed
	}

	if latestCommitHash == "" {
		return InvalidationModel{}, ErrCommitHashNotAllowed
	}

	invalidationInfo := InvalidationModel{
		ProjectName:            projectName,
		CommitHash:             latestCommitHash,
		RequestedInvalidations: urls,
		DoneInvalidations:      []string{},
		RemovedKeys:            []string{},
	}

	var invalidationError error

	for _, url := range urls {
		removed, err := s.invalidator.Invalidate(url)
		if removed {
			invalidationInfo.RemovedKeys = append(invalidationInfo.RemovedKeys, s.invalidator.Key(url))
		}

		if err != nil {
			invalidationError = err
			errText := err.Error()
			invalidationInfo.InvalidationError = &errText
			break
		}

		invalidationInfo.DoneInvalidations = append(invalidationInfo.DoneInvalidations, url)
	}

	invalidationInfo.InvalidationDate = time.Now()
	if err := s.repository.CreateInvalidation(ctx, invalidationInfo); err != nil {
		return invalidationInfo, err
	}

	return invalidationInfo, invalidationError
}
