package main

import (
	"context"
	"log"

	"github.com/thebartekbanach/imloader/pkg/decoder"
)

// prefetchBinder backs the prefetch endpoint, where the target of a request
// is the URL itself, so results are never stale.
type prefetchBinder struct{}

func (b *prefetchBinder) CurrentURL(targetID string) string {
	return targetID
}

func (b *prefetchBinder) Apply(ctx context.Context, targetID, url string, bitmap *decoder.Bitmap) {
	log.Printf("prefetched %s (%dx%d, sample size %d)", url, bitmap.Width, bitmap.Height, bitmap.SampleSize)
}
