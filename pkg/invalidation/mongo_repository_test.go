package invalidation

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/thebartekbanach/imloader/pkg/connections"
)

func createInvalidationModel(projectName, commitHash string, creationTime time.Time, urls []string) InvalidationModel {
	return InvalidationModel{
		ProjectName: projectName,
		CommitHash:  commitHash,

		InvalidationDate:       creationTime,
		RequestedInvalidations: urls,
		DoneInvalidations:      urls,
		RemovedKeys:            []string{},
	}
}

func TestMongoRepositoryIntegration_CreatesInvalidationCorrectly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongoRepository integration tests")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	info := createInvalidationModel("project", "abcdef", time.Now(), []string{
		"http://google.com/image1.jpg",
		"http://google.com/image2.jpg",
	})

	conn := connections.NewCacheDBTestingConnection(t)
	repo := NewMongoRepository(conn)

	if err := repo.CreateInvalidation(ctx, info); err != nil {
		t.Errorf("Unexpected error when creating invalidation entry: %v", err)
	}

	invalidation, err := repo.GetLatestInvalidation(ctx, "project")
	if err != nil {
		t.Errorf("Unexpected error when getting latest invalidation: %v", err)
	}

	// InvalidationDate loses precision in mongo, so only urls are compared
	if !reflect.DeepEqual(invalidation.RequestedInvalidations, info.RequestedInvalidations) {
		t.Errorf("Invalidation is not the same as the one created")
	}
}

func TestMongoRepositoryIntegration_ReturnsLatestInvalidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongoRepository integration tests")
	}

	ctx := context.Background()
	conn := connections.NewCacheDBTestingConnection(t)
	repo := NewMongoRepository(conn)
	now := time.Now()

	repo.CreateInvalidation(ctx, createInvalidationModel("project", "first", now.Add(-time.Minute), []string{"a"}))
	repo.CreateInvalidation(ctx, createInvalidationModel("project", "second", now, []string{"b"}))
	repo.CreateInvalidation(ctx, createInvalidationModel("other", "third", now.Add(time.Minute), []string{"c"}))

	invalidation, err := repo.GetLatestInvalidation(ctx, "project")
	if err != nil {
		t.Fatalf("Unexpected error when getting latest invalidation: %v", err)
	}

	if invalidation.CommitHash != "second" {
		t.Errorf("Expected latest invalidation to be second, got %s", invalidation.CommitHash)
	}
}

func TestMongoRepositoryIntegration_ReturnsErrProjectNotFoundForUnknownProject(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongoRepository integration tests")
	}

	repo := NewMongoRepository(connections.NewCacheDBTestingConnection(t))

	if _, err := repo.GetLatestInvalidation(context.Background(), "unknown"); err != ErrProjectNotFound {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
}
