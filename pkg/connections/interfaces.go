package connections

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"go.mongodb.org/mongo-driver/mongo"
)

type CacheDBConnection interface {
	Collection(collectionName string) *mongo.Collection
}

// MinioBlockStorageConnection is a bucket-scoped view of an object store.
type MinioBlockStorageConnection interface {
	Bucket() string
	GetObject(ctx context.Context, objectName string) (*minio.Object, error)
	GetBucketObject(ctx context.Context, bucket, objectName string) (*minio.Object, error)
	PutObject(ctx context.Context, objectName string, objectSize int64, mimeType string, reader io.Reader) error
	DeleteObject(ctx context.Context, objectName string) error
	ObjectExists(ctx context.Context, objectName string) (exists bool, err error)
}
