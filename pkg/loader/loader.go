package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	diskcache "github.com/thebartekbanach/imloader/pkg/cache/disk"
	memorycache "github.com/thebartekbanach/imloader/pkg/cache/memory"
	"github.com/thebartekbanach/imloader/pkg/decoder"
	"github.com/thebartekbanach/imloader/pkg/filefetcher"
	"github.com/thebartekbanach/imloader/pkg/hasher"
	"golang.org/x/sync/singleflight"
)

type MemoryCache = memorycache.Store[*decoder.Bitmap]

// NewMemoryCache creates a memory tier bounded by the total size of the
// cached bitmaps in kilobytes.
func NewMemoryCache(maxSizeKB int) *MemoryCache {
	return memorycache.New(maxSizeKB, func(_ string, bitmap *decoder.Bitmap) int {
		return bitmap.SizeKB()
	})
}

// ImageLoader resolves URLs to decoded bitmaps through the memory tier,
// the disk tier and finally the network, writing results back into the
// faster tiers.
type ImageLoader struct {
	memory  *MemoryCache
	disk    *diskcache.Store
	fetcher filefetcher.Fetcher
	decoder decoder.Decoder
	hasher  *hasher.Hasher
	logger  *log.Logger

	// flights serializes network populates and invalidations per key.
	flights singleflight.Group
}

// New creates a loader. disk may be nil, in which case images are fetched
// and decoded directly on every memory miss without being cached.
func New(
	memory *MemoryCache,
	disk *diskcache.Store,
	fetcher filefetcher.Fetcher,
	imageDecoder decoder.Decoder,
	keyHasher *hasher.Hasher,
	logger *log.Logger,
) *ImageLoader {
	if keyHasher == nil {
		keyHasher = hasher.New()
	}

	if logger == nil {
		logger = log.New(log.Writer(), "[loader] ", log.Flags())
	}

	return &ImageLoader{
		memory:  memory,
		disk:    disk,
		fetcher: fetcher,
		decoder: imageDecoder,
		hasher:  keyHasher,
		logger:  logger,
	}
}

func (l *ImageLoader) Key(url string) string {
	return l.hasher.Key(url)
}

// LoadFromMemory returns the bitmap of url only when it is already decoded
// in memory. It never blocks on I/O.
func (l *ImageLoader) LoadFromMemory(url string) (*decoder.Bitmap, bool) {
	return l.memory.Get(l.Key(url))
}

// Load returns the bitmap of url decoded for the requested dimensions.
// It blocks on disk and network I/O and must not be called with a context
// marked by WithNonBlocking.
func (l *ImageLoader) Load(ctx context.Context, url string, width, height int) (*decoder.Bitmap, error) {
	if IsNonBlocking(ctx) {
		return nil, ErrBlockingLoad
	}

	key := l.Key(url)

	if bitmap, found := l.memory.Get(key); found {
		return bitmap, nil
	}

	if l.disk == nil {
		return l.loadWithoutDisk(ctx, url, width, height)
	}

	if bitmap, found := l.loadFromDisk(key, width, height); found {
		return bitmap, nil
	}

	if err := l.populate(ctx, url, key); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		l.logger.Printf("cannot populate %s (%s): %s", key, url, err)
		return nil, fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}

	if bitmap, found := l.loadFromDisk(key, width, height); found {
		return bitmap, nil
	}

	return nil, ErrImageUnavailable
}

// Invalidate drops url from both tiers. It reports whether anything was
// removed. A populate of url already in flight finishes first, so the blob
// it fetched is removed too.
func (l *ImageLoader) Invalidate(url string) (bool, error) {
	key := l.Key(url)

	if l.disk == nil {
		return l.memory.Remove(key), nil
	}

	for {
		value, err, _ := l.flights.Do(key, func() (interface{}, error) {
			removed, err := l.removeFromTiers(key)
			return flightResult{invalidateFlight, removed}, err
		})

		if result := value.(flightResult); result.kind == invalidateFlight {
			return result.removed, err
		}
	}
}

func (l *ImageLoader) removeFromTiers(key string) (bool, error) {
	removed := l.memory.Remove(key)

	err := l.disk.Remove(key)
	if err == nil {
		removed = true
	} else if !errors.Is(err, diskcache.ErrEntryNotFound) {
		return removed, err
	}

	return removed, l.disk.Flush()
}

func (l *ImageLoader) loadFromDisk(key string, width, height int) (*decoder.Bitmap, bool) {
	snapshot, err := l.disk.Read(key)
	if err != nil {
		if !errors.Is(err, diskcache.ErrEntryNotFound) {
			l.logger.Printf("cannot read %s from disk: %s", key, err)
		}
		return nil, false
	}

	bitmap, err := l.decoder.Decode(snapshot, width, height)
	snapshot.Close()

	if err != nil {
		l.logger.Printf("cannot decode %s, dropping blob: %s", key, err)
		if err := l.disk.Remove(key); err != nil && !errors.Is(err, diskcache.ErrEntryNotFound) {
			l.logger.Printf("cannot remove undecodable blob %s: %s", key, err)
		}
		return nil, false
	}

	l.memory.Put(key, bitmap)
	return bitmap, true
}

// populate downloads url into the disk tier unless another caller is
// already doing so, in which case it waits for that caller to finish.
func (l *ImageLoader) populate(ctx context.Context, url, key string) error {
	for {
		flight := l.flights.DoChan(key, func() (interface{}, error) {
			return flightResult{kind: populateFlight}, l.fetchToDisk(ctx, url, key)
		})

		select {
		case res := <-flight:
			// Joined an invalidation; populate again once it is done.
			if res.Val.(flightResult).kind != populateFlight {
				continue
			}
			return res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *ImageLoader) fetchToDisk(ctx context.Context, url, key string) error {
	// The previous flight may have committed between our disk read and now.
	if l.disk.Contains(key) {
		return nil
	}

	writer, err := l.disk.BeginWrite(key)
	if errors.Is(err, diskcache.ErrConcurrentWrite) {
		return nil
	} else if err != nil {
		return err
	}

	if err := l.fetcher.Fetch(ctx, url, writer); err != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			l.logger.Printf("cannot abort write of %s: %s", key, abortErr)
		}
		l.flush()
		return err
	}

	if err := writer.Commit(); err != nil {
		l.flush()
		return err
	}

	l.flush()
	return nil
}

func (l *ImageLoader) loadWithoutDisk(ctx context.Context, url string, width, height int) (*decoder.Bitmap, error) {
	buffer := bytes.NewBuffer([]byte{})
	if err := l.fetcher.Fetch(ctx, url, buffer); err != nil {
		l.logger.Printf("cannot fetch %s: %s", url, err)
		return nil, fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}

	bitmap, err := l.decoder.Decode(bytes.NewReader(buffer.Bytes()), width, height)
	if err != nil {
		l.logger.Printf("cannot decode %s: %s", url, err)
		return nil, fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}

	return bitmap, nil
}

func (l *ImageLoader) flush() {
	if err := l.disk.Flush(); err != nil {
		l.logger.Printf("cannot flush disk cache journal: %s", err)
	}
}

type flightKind int

const (
	populateFlight flightKind = iota
	invalidateFlight
)

type flightResult struct {
	kind    flightKind
	removed bool
}

var (
	ErrImageUnavailable = errors.New("image is unavailable")
	ErrBlockingLoad     = errors.New("blocking load called from non-blocking context")
)
