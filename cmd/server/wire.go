//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/thebartekbanach/imloader/pkg/invalidation"
	"github.com/thebartekbanach/imloader/pkg/loader"
)

func InitializeApplication(ctx context.Context) *Application {
	wire.Build(
		InitializeConfig,

		InitializeMemoryCache,
		InitializeDiskCache,
		InitializeMinioConnection,
		InitializeFetcher,
		InitializeDecoder,
		InitializeHasher,
		InitializeImageLoader,

		InitializeDispatcher,

		InitializeInvalidationsRepository,
		wire.Bind(new(invalidation.Invalidator), new(*loader.ImageLoader)),
		invalidation.NewService,

		wire.Struct(new(Application), "*"),
	)

	return &Application{}
}
