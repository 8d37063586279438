package invalidation

//go:generate mockgen -destination=mocks/mock_invalidation.go . Repository,Invalidator

import (
	"context"
	"time"
)

type InvalidationModel struct {
	ProjectName string `json:"projectName" bson:"projectName"`
	CommitHash  string `json:"commitHash" bson:"commitHash"`

	InvalidationDate       time.Time `json:"invalidationDate" bson:"invalidationDate"`
	RequestedInvalidations []string  `json:"requestedInvalidations" bson:"requestedInvalidations"`
	DoneInvalidations      []string  `json:"doneInvalidations" bson:"doneInvalidations"`
	RemovedKeys            []string  `json:"removedKeys" bson:"removedKeys"`
	InvalidationError      *string   `json:"invalidationError" bson:"invalidationError"`
}

type Repository interface {
	CreateInvalidation(ctx context.Context, invalidation InvalidationModel) error
	GetLatestInvalidation(ctx context.Context, projectName string) (InvalidationModel, error)
}

// Invalidator drops cached images of a URL from every cache tier.
type Invalidator interface {
	Invalidate(url string) (removed bool, err error)
	Key(url string) string
}
