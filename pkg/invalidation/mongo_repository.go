package invalidation

import (
	"context"
	"errors"

	"github.com/thebartekbanach/imloader/pkg/connections"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const invalidationsCollection = "invalidations"

type mongoRepository struct {
	conn connections.CacheDBConnection
}

var _ Repository = (*mongoRepository)(nil)

func NewMongoRepository(conn connections.CacheDBConnection) Repository {
	return &mongoRepository{conn}
}

func (r *mongoRepository) CreateInvalidation(ctx context.Context, invalidation InvalidationModel) error {
	if err := validate(invalidation); err != nil {
		return err
	}

	coll := r.conn.Collection(invalidationsCollection)
	_, err := coll.InsertOne(ctx, invalidation)
	return err
}

func (r *mongoRepository) GetLatestInvalidation(ctx context.Context, projectName string) (InvalidationModel, error) {
	if projectName == "" {
		return InvalidationModel{}, ErrProjectNameNotAllowed
	}

	coll := r.conn.Collection(invalidationsCollection)
	opts := options.FindOne().SetSort(bson.D{{Key: "invalidationDate", Value: -1}})
	result := coll.FindOne(ctx, bson.D{{Key: "projectName", Value: projectName}}, opts)

	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return InvalidationModel{}, ErrProjectNotFound
		}

		return InvalidationModel{}, result.Err()
	}

	var invalidation InvalidationModel
	err := result.Decode(&invalidation)
	return invalidation, err
}

func validate(invalidation InvalidationModel) error {
	if invalidation.ProjectName == "" {
		return ErrProjectNameNotAllowed
	}

	if invalidation.CommitHash == "" {
		return ErrCommitHashNotAllowed
	}

	return nil
}

var (
	ErrCommitHashNotAllowed  = errors.New("this commit hash is not allowed")
	ErrProjectNameNotAllowed = errors.New("this project name is not allowed")
	ErrProjectNotFound       = errors.New("project not found")
)
