package dispatcher

//go:generate mockgen -destination=mocks/mock_dispatcher.go . Loader,Binder

import (
	"context"

	"github.com/google/uuid"
	"github.com/thebartekbanach/imloader/pkg/decoder"
)

type Loader interface {
	Load(ctx context.Context, url string, width, height int) (*decoder.Bitmap, error)
	LoadFromMemory(url string) (*decoder.Bitmap, bool)
}

// Binder connects loaded bitmaps with the targets that displayed them.
// Its methods are only ever called from the single consumer goroutine.
type Binder interface {
	// CurrentURL returns the URL the target currently wants to show.
	CurrentURL(targetID string) string
	Apply(ctx context.Context, targetID, url string, bitmap *decoder.Bitmap)
}

type Request struct {
	ID       uuid.UUID
	TargetID string
	URL      string
	Width    int
	Height   int
}

type result struct {
	request Request
	bitmap  *decoder.Bitmap
}
