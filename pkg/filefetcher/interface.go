package filefetcher

//go:generate mockgen -destination=mocks/mock_fetcher.go . Fetcher

import (
	"context"
	"io"
)

// Fetcher streams the resource at url into sink. A nil error means the
// whole resource was transferred; sink may hold partial data otherwise.
type Fetcher interface {
	Fetch(ctx context.Context, url string, sink io.Writer) error
}
