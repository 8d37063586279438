package connections

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioBlockStorageTestingConnection struct {
	*MinioBlockStorageProductionConnection
}

// NewMinioBlockStorageTestingConnection connects to the integration MinIO
// server using a fresh random bucket, which is removed on test cleanup.
func NewMinioBlockStorageTestingConnection(t *testing.T) *MinioBlockStorageTestingConnection {
	endpoint := testingServerEndpoint()

	conn, err := NewMinioBlockStorageProductionConnection(context.Background(), MinioBlockStorageProductionConnectionConfig{
		Endpoint:  endpoint,
		AccessKey: testingServerAccessKey,
		SecretKey: testingServerSecretKey,
		Bucket:    getRandomTestingBucketName(endpoint),
		Location:  "us-east-1",
		UseSSL:    false,
	})
	if err != nil {
		t.Fatalf("Error when connecting to minio block storage: %s", err)
	}

	testingConn := &MinioBlockStorageTestingConnection{conn}
	t.Cleanup(func() {
		testingConn.dropTestBucket(t)
	})

	return testingConn
}

func (c *MinioBlockStorageTestingConnection) dropTestBucket(t *testing.T) {
	ctx := context.Background()

	for object := range c.client.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			t.Logf("Error when listing test bucket %s: %s", c.config.Bucket, object.Err)
			return
		}

		if err := c.client.RemoveObject(ctx, c.config.Bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			t.Logf("Error when removing %s from test bucket: %s", object.Key, err)
		}
	}

	if err := c.client.RemoveBucket(ctx, c.config.Bucket); err != nil {
		t.Logf("Error when dropping test bucket %s: %s", c.config.Bucket, err)
	}
}

func getRandomTestingBucketName(endpoint string) string {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(testingServerAccessKey, testingServerSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		panic("Error when generating random name of test bucket: " + err.Error())
	}

	for i := 0; i < 10; i++ {
		id := uuid.New().String()
		bucketName := id + "-testing-bucket"

		exists, err := minioClient.BucketExists(context.Background(), bucketName)
		if err != nil {
			panic("Error when checking if bucket name exists: " + err.Error())
		}
		if !exists {
			return bucketName
		}
	}

	panic("Could not generate random bucket name")
}

func testingServerEndpoint() string {
	if endpoint := os.Getenv("IMLOADER_TEST_MINIO_ENDPOINT"); endpoint != "" {
		return endpoint
	}

	return "IntegrationTests.Imloader.Minio:9000"
}

const testingServerAccessKey = "minio"
const testingServerSecretKey = "minio123"
