package filefetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/thebartekbanach/imloader/pkg/connections"
)

// ObjectFetcher fetches s3://<bucket>/<object> URLs from an S3 compatible
// object store.
type ObjectFetcher struct {
	conn connections.MinioBlockStorageConnection
}

var _ Fetcher = (*ObjectFetcher)(nil)

func NewObjectFetcher(conn connections.MinioBlockStorageConnection) *ObjectFetcher {
	return &ObjectFetcher{conn}
}

func (fetcher *ObjectFetcher) Fetch(ctx context.Context, rawURL string, sink io.Writer) error {
	bucket, objectName, err := parseObjectURL(rawURL)
	if err != nil {
		return err
	}

	object, err := fetcher.conn.GetBucketObject(ctx, bucket, objectName)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		if connections.IsObjectNotFound(err) {
			return ErrResponseStatus404
		}

		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	buffer := make([]byte, copyBufferSize)
	written, err := io.CopyBuffer(writerOnly{sink}, readerOnly{object}, buffer)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	if written != info.Size {
		return fmt.Errorf("%w: received %d of %d bytes", ErrIncompleteTransfer, written, info.Size)
	}

	return nil
}

func parseObjectURL(rawURL string) (bucket, objectName string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidObjectURL, err)
	}

	if parsed.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: unexpected scheme %q", ErrInvalidObjectURL, parsed.Scheme)
	}

	bucket = parsed.Host
	objectName = strings.TrimPrefix(parsed.Path, "/")

	if bucket == "" || objectName == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidObjectURL, rawURL)
	}

	return bucket, objectName, nil
}

var ErrInvalidObjectURL = errors.New("object url must have form s3://bucket/object")
