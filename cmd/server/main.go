package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("initializing image loader")
	app := InitializeApplication(ctx)
	defer app.Close()
	log.Printf("configuration: %s", app.Config)

	app.Dispatcher.Start(ctx)
	defer app.Dispatcher.Stop()

	log.Println("registering http handlers")
	mux := http.NewServeMux()
	mux.HandleFunc("/image", handleImageRequest(ctx, app.Loader, app.Config.FetchTimeout))
	mux.HandleFunc("/prefetch", handlePrefetchRequest(app.Dispatcher))
	mux.HandleFunc("/invalidate", handleInvalidationRequest(ctx, app.Invalidation, app.Config.InvalidateSecurityToken))
	mux.HandleFunc("/invalidations/latest", handleLatestInvalidationInfoRequest(ctx, app.Invalidation, app.Config.InvalidateSecurityToken))

	srv := &http.Server{
		Addr:    app.Config.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error ocurred when shutting down server: %s", err)
		}
	}()

	log.Printf("listening on %s", app.Config.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Panicf("server failed: %s", err)
	}

	log.Println("shutting down")
}
