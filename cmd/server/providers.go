package main

import (
	"context"
	"log"
	"net/http"
	"time"

	diskcache "github.com/thebartekbanach/imloader/pkg/cache/disk"
	"github.com/thebartekbanach/imloader/pkg/config"
	"github.com/thebartekbanach/imloader/pkg/connections"
	"github.com/thebartekbanach/imloader/pkg/decoder"
	"github.com/thebartekbanach/imloader/pkg/dispatcher"
	"github.com/thebartekbanach/imloader/pkg/filefetcher"
	"github.com/thebartekbanach/imloader/pkg/hasher"
	"github.com/thebartekbanach/imloader/pkg/invalidation"
	"github.com/thebartekbanach/imloader/pkg/loader"
	"github.com/thebartekbanach/imloader/pkg/storagepath"
)

type Application struct {
	Config       *config.Config
	Disk         *diskcache.Store
	Loader       *loader.ImageLoader
	Dispatcher   *dispatcher.Dispatcher
	Invalidation *invalidation.Service
}

func (app *Application) Close() {
	if app.Disk == nil {
		return
	}

	if err := app.Disk.Close(); err != nil {
		log.Printf("error ocurred when closing disk cache: %s", err)
	}
}

func InitializeConfig() *config.Config {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Panicf("Error ocurred when loading configuration: %s", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Panicf("Error ocurred when validating configuration: %s", err)
	}

	return cfg
}

// InitializeDiskCache returns nil when the disk tier cannot be used, which
// makes the loader fetch directly on every memory miss.
func InitializeDiskCache(cfg *config.Config) *diskcache.Store {
	dir, err := storagepath.CacheDir(cfg.CacheDir, "imloader")
	if err != nil {
		log.Printf("disk cache disabled, cannot prepare cache directory: %s", err)
		return nil
	}

	disk, err := diskcache.Open(dir, cfg.DiskCacheSize)
	if err != nil {
		log.Printf("disk cache disabled: %s", err)
		return nil
	}

	log.Printf("disk cache at %s holds %d entries (%d of %d bytes)", dir, disk.Len(), disk.Size(), disk.MaxBytes())
	return disk
}

func InitializeMemoryCache(cfg *config.Config) *loader.MemoryCache {
	return loader.NewMemoryCache(cfg.MemoryCacheSizeKB)
}

func InitializeMinioConnection(ctx context.Context, cfg *config.Config) connections.MinioBlockStorageConnection {
	if !cfg.MinioEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	conn, err := connections.NewMinioBlockStorageProductionConnection(ctx, connections.MinioBlockStorageProductionConnectionConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Location:  cfg.MinioLocation,
		UseSSL:    cfg.MinioSSL,
	})
	if err != nil {
		log.Panicf("Error ocurred when initializing Minio connection: %s", err)
	}

	return conn
}

func InitializeFetcher(cfg *config.Config, minioConn connections.MinioBlockStorageConnection) filefetcher.Fetcher {
	httpFetcher := filefetcher.NewHTTPFetcher(
		filefetcher.WithClient(&http.Client{Timeout: cfg.FetchTimeout}),
		filefetcher.WithRetries(cfg.FetchRetries),
		filefetcher.WithHTTPLogger(log.New(log.Writer(), "[fetcher] ", log.Flags())),
	)

	router := filefetcher.NewRouter(cfg.AllowedDomains).
		Register("http", httpFetcher).
		Register("https", httpFetcher)

	if minioConn != nil {
		router.Register("s3", filefetcher.NewObjectFetcher(minioConn))
	}

	return router
}

func InitializeDecoder() decoder.Decoder {
	return decoder.NewImageDecoder()
}

func InitializeImageLoader(
	memory *loader.MemoryCache,
	disk *diskcache.Store,
	fetcher filefetcher.Fetcher,
	imageDecoder decoder.Decoder,
	keyHasher *hasher.Hasher,
) *loader.ImageLoader {
	return loader.New(memory, disk, fetcher, imageDecoder, keyHasher, nil)
}

func InitializeHasher() *hasher.Hasher {
	return hasher.New()
}

func InitializeDispatcher(cfg *config.Config, imageLoader *loader.ImageLoader) *dispatcher.Dispatcher {
	return dispatcher.New(
		imageLoader,
		&prefetchBinder{},
		dispatcher.WithWorkers(cfg.Workers),
		dispatcher.WithLoadTimeout(cfg.FetchTimeout),
	)
}

func InitializeInvalidationsRepository(ctx context.Context, cfg *config.Config) invalidation.Repository {
	if !cfg.MongoEnabled() {
		log.Println("IMLOADER_MONGO_CONNECTION_STRING not set, invalidation history is kept in memory")
		return invalidation.NewMemoryRepository()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	conn, err := connections.NewCacheDBProductionConnection(ctx, connections.CacheDBConfig{
		ConnectionString: cfg.MongoConnectionString,
		Database:         cfg.MongoDatabase,
	})
	if err != nil {
		log.Panicf("Error ocurred when initializing MongoDB connection: %s", err)
	}

	return invalidation.NewMongoRepository(conn)
}
