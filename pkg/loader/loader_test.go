package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/franela/goblin"
	"github.com/golang/mock/gomock"
	diskcache "github.com/thebartekbanach/imloader/pkg/cache/disk"
	"github.com/thebartekbanach/imloader/pkg/decoder"
	"github.com/thebartekbanach/imloader/pkg/filefetcher"
	mock_filefetcher "github.com/thebartekbanach/imloader/pkg/filefetcher/mocks"
	"github.com/thebartekbanach/imloader/pkg/hasher"
	testutils "github.com/thebartekbanach/imloader/test/utils"
)

const testImageURL = "https://example.com/image.png"

func openTestDisk(g *goblin.G, t *testing.T) *diskcache.Store {
	disk, err := diskcache.Open(t.TempDir(), 1<<20, diskcache.WithUsableSpace(func(string) (int64, error) {
		return 1 << 40, nil
	}))
	if err != nil {
		g.Fatalf("cannot open disk cache: %s", err)
	}

	return disk
}

func writeToSink(data []byte) func(context.Context, string, io.Writer) error {
	return func(_ context.Context, _ string, sink io.Writer) error {
		_, err := sink.Write(data)
		return err
	}
}

func TestImageLoader(t *testing.T) {
	g := goblin.Goblin(t)
	image := testutils.EncodePNG(t, 64, 48)

	g.Describe("ImageLoader", func() {
		g.It("Should return bitmap from memory without touching disk or network", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			loader := New(NewMemoryCache(1024), openTestDisk(g, t), fetcher, decoder.NewImageDecoder(), nil, nil)
			cached := &decoder.Bitmap{Width: 1, Height: 1, SampleSize: 1}
			loader.memory.Put(loader.Key(testImageURL), cached)

			bitmap, err := loader.Load(context.Background(), testImageURL, 10, 10)

			g.Assert(err).IsNil()
			g.Assert(bitmap == cached).IsTrue()
		})

		g.It("Should fetch image, store it on disk and in memory", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink(image)).Times(1)

			disk := openTestDisk(g, t)
			loader := New(NewMemoryCache(1024), disk, fetcher, decoder.NewImageDecoder(), nil, nil)

			bitmap, err := loader.Load(context.Background(), testImageURL, 64, 48)

			g.Assert(err).IsNil()
			g.Assert(bitmap.Width).Equal(64)
			g.Assert(disk.Contains(loader.Key(testImageURL))).IsTrue()
			g.Assert(disk.Size()).Equal(int64(len(image)))

			fromMemory, found := loader.LoadFromMemory(testImageURL)
			g.Assert(found).IsTrue()
			g.Assert(fromMemory == bitmap).IsTrue()
		})

		g.It("Should decode image from disk after memory eviction", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink(image)).Times(1)

			loader := New(NewMemoryCache(1024), openTestDisk(g, t), fetcher, decoder.NewImageDecoder(), nil, nil)

			_, err := loader.Load(context.Background(), testImageURL, 64, 48)
			g.Assert(err).IsNil()

			loader.memory.Remove(loader.Key(testImageURL))

			bitmap, err := loader.Load(context.Background(), testImageURL, 64, 48)
			g.Assert(err).IsNil()
			g.Assert(bitmap.Height).Equal(48)
		})

		g.It("Should fetch only once for concurrent loads of the same URL", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			started := make(chan struct{}, 1)
			gate := make(chan struct{})
			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, sink io.Writer) error {
					started <- struct{}{}
					<-gate
					_, err := sink.Write(image)
					return err
				},
			).Times(1)

			loader := New(NewMemoryCache(1024), openTestDisk(g, t), fetcher, decoder.NewImageDecoder(), nil, nil)

			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := 0; i < len(errs); i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = loader.Load(context.Background(), testImageURL, 64, 48)
				}(i)
			}

			<-started
			close(gate)
			wg.Wait()

			for _, err := range errs {
				g.Assert(err).IsNil()
			}
		})

		g.It("Should abort the write and leave no blob when transfer fails", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, sink io.Writer) error {
					sink.Write(image[:10])
					return filefetcher.ErrIncompleteTransfer
				},
			)

			disk := openTestDisk(g, t)
			loader := New(NewMemoryCache(1024), disk, fetcher, decoder.NewImageDecoder(), nil, nil)

			_, err := loader.Load(context.Background(), testImageURL, 64, 48)

			g.Assert(errors.Is(err, ErrImageUnavailable)).IsTrue()
			g.Assert(disk.Len()).Equal(0)
			g.Assert(loader.memory.Len()).Equal(0)

			files, _ := os.ReadDir(disk.Dir())
			for _, file := range files {
				g.Assert(file.Name()).Equal("journal.bson")
			}
		})

		g.It("Should treat undecodable blob as a miss and fetch it again", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink(image)).Times(1)

			disk := openTestDisk(g, t)
			loader := New(NewMemoryCache(1024), disk, fetcher, decoder.NewImageDecoder(), nil, nil)

			writer, _ := disk.BeginWrite(loader.Key(testImageURL))
			writer.Write([]byte("corrupted"))
			writer.Commit()

			bitmap, err := loader.Load(context.Background(), testImageURL, 64, 48)

			g.Assert(err).IsNil()
			g.Assert(bitmap.Width).Equal(64)
		})

		g.It("Should return ErrImageUnavailable when fetched data cannot be decoded", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink([]byte("not an image")))

			disk := openTestDisk(g, t)
			loader := New(NewMemoryCache(1024), disk, fetcher, decoder.NewImageDecoder(), nil, nil)

			_, err := loader.Load(context.Background(), testImageURL, 64, 48)

			g.Assert(errors.Is(err, ErrImageUnavailable)).IsTrue()
			g.Assert(disk.Len()).Equal(0)
		})

		g.It("Should fetch directly without caching when disk tier is absent", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink(image)).Times(2)

			loader := New(NewMemoryCache(1024), nil, fetcher, decoder.NewImageDecoder(), nil, nil)

			for i := 0; i < 2; i++ {
				bitmap, err := loader.Load(context.Background(), testImageURL, 32, 24)
				g.Assert(err).IsNil()
				g.Assert(bitmap.Width).Equal(64)
			}
			g.Assert(loader.memory.Len()).Equal(0)
		})

		g.It("Should return ErrImageUnavailable from fallback when fetch fails", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).Return(filefetcher.ErrResponseStatus404)

			loader := New(NewMemoryCache(1024), nil, fetcher, decoder.NewImageDecoder(), nil, nil)

			_, err := loader.Load(context.Background(), testImageURL, 32, 24)

			g.Assert(errors.Is(err, ErrImageUnavailable)).IsTrue()
		})

		g.It("Should refuse to load from non-blocking context", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			loader := New(NewMemoryCache(1024), openTestDisk(g, t), fetcher, decoder.NewImageDecoder(), nil, nil)

			_, err := loader.Load(WithNonBlocking(context.Background()), testImageURL, 32, 24)

			g.Assert(err).Equal(ErrBlockingLoad)
		})

		g.It("Should stop waiting for pending fetch when context is done", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			started := make(chan struct{})
			gate := make(chan struct{})
			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, sink io.Writer) error {
					close(started)
					<-gate
					_, err := sink.Write(image)
					return err
				},
			).Times(1)

			loader := New(NewMemoryCache(1024), openTestDisk(g, t), fetcher, decoder.NewImageDecoder(), nil, nil)

			firstDone := make(chan error, 1)
			go func() {
				_, err := loader.Load(context.Background(), testImageURL, 64, 48)
				firstDone <- err
			}()
			<-started

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := loader.Load(ctx, testImageURL, 32, 24)
			g.Assert(err).Equal(context.DeadlineExceeded)

			close(gate)
			g.Assert(<-firstDone).IsNil()
		})

		g.It("Should cache the subsampled bitmap and keep the raw blob on disk", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink(image)).Times(1)

			disk := openTestDisk(g, t)
			memory := NewMemoryCache(1024)
			loader := New(memory, disk, fetcher, decoder.NewImageDecoder(), nil, nil)

			bitmap, err := loader.Load(context.Background(), testImageURL, 16, 12)

			g.Assert(err).IsNil()
			g.Assert(bitmap.SampleSize).Equal(2)
			g.Assert(bitmap.Width).Equal(32)
			g.Assert(bitmap.Height).Equal(24)
			g.Assert(bitmap.SizeKB()).Equal(32 * 24 * 4 / 1024)
			g.Assert(memory.Size()).Equal(bitmap.SizeKB())

			fromMemory, found := loader.LoadFromMemory(testImageURL)
			g.Assert(found).IsTrue()
			g.Assert(fromMemory == bitmap).IsTrue()

			snapshot, err := disk.Read(loader.Key(testImageURL))
			g.Assert(err).IsNil()
			g.Assert(snapshot != nil).IsTrue()
			g.Assert(snapshot.Size()).Equal(int64(len(image)))
			snapshot.Close()
		})

		g.It("Should wait for in-flight fetch before invalidating", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			started := make(chan struct{})
			gate := make(chan struct{})
			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, sink io.Writer) error {
					close(started)
					<-gate
					_, err := sink.Write(image)
					return err
				},
			).Times(1)

			disk := openTestDisk(g, t)
			loader := New(NewMemoryCache(1024), disk, fetcher, decoder.NewImageDecoder(), nil, nil)

			loadDone := make(chan struct{})
			go func() {
				defer close(loadDone)
				loader.Load(context.Background(), testImageURL, 64, 48)
			}()
			<-started

			type invalidation struct {
				removed bool
				err     error
			}
			invalidated := make(chan invalidation, 1)
			go func() {
				removed, err := loader.Invalidate(testImageURL)
				invalidated <- invalidation{removed, err}
			}()

			select {
			case <-invalidated:
				g.Fail("Expected invalidation to wait for the in-flight fetch")
			case <-time.After(20 * time.Millisecond):
			}

			close(gate)
			result := <-invalidated
			<-loadDone

			g.Assert(result.err).IsNil()
			g.Assert(result.removed).IsTrue()
			g.Assert(disk.Contains(loader.Key(testImageURL))).IsFalse()
		})

		g.It("Should invalidate URL in both tiers", func() {
			mockCtrl := gomock.NewController(g)
			defer mockCtrl.Finish()

			fetcher := mock_filefetcher.NewMockFetcher(mockCtrl)
			fetcher.EXPECT().Fetch(gomock.Any(), testImageURL, gomock.Any()).DoAndReturn(writeToSink(image))

			disk := openTestDisk(g, t)
			loader := New(NewMemoryCache(1024), disk, fetcher, decoder.NewImageDecoder(), nil, nil)
			loader.Load(context.Background(), testImageURL, 64, 48)

			removed, err := loader.Invalidate(testImageURL)
			g.Assert(err).IsNil()
			g.Assert(removed).IsTrue()
			g.Assert(disk.Contains(loader.Key(testImageURL))).IsFalse()
			g.Assert(loader.memory.Len()).Equal(0)

			removed, err = loader.Invalidate(testImageURL)
			g.Assert(err).IsNil()
			g.Assert(removed).IsFalse()
		})

		g.It("Should use keys of injected hasher", func() {
			keyHasher := hasher.New()
			loader := New(NewMemoryCache(1), nil, nil, nil, keyHasher, nil)

			g.Assert(loader.Key(testImageURL)).Equal(keyHasher.Key(testImageURL))
		})
	})
}
