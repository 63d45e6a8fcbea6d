package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/api"
	"github.com/dvloznov/photo-gallery/internal/api/handlers"
	"github.com/dvloznov/photo-gallery/internal/config"
	"github.com/dvloznov/photo-gallery/internal/gallery"
	"github.com/dvloznov/photo-gallery/internal/logger"
	"github.com/dvloznov/photo-gallery/internal/naming"
	"github.com/dvloznov/photo-gallery/internal/objstore"
	"github.com/dvloznov/photo-gallery/internal/objstore/backend"
	"github.com/dvloznov/photo-gallery/internal/web"
)

func main() {
	bootLog := logger.New()

	cfg, foundDotEnv, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	backendName := flag.String("backend", cfg.Storage.Backend, "Storage backend: gcs, minio, s3 or memory (or set STORAGE_BACKEND env)")
	bucket := flag.String("bucket", cfg.Storage.Bucket, "Bucket name (or set GCS_BUCKET env)")
	flag.Parse()

	cfg.Port = *port
	cfg.Storage.Backend = *backendName
	cfg.Storage.Bucket = *bucket
	if err := cfg.Validate(); err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{
		Level:  cfg.LogLevel,
		Format: logger.Format(cfg.LogFormat),
	})
	if !foundDotEnv {
		log.Debug().Msg("No .env file found, reading from environment")
	}

	ctx := context.Background()

	store, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open object store")
	}

	urls, stopPruning, err := newURLResolver(cfg.Storage, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure image URLs")
	}
	defer stopPruning()

	pages, err := web.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	codec := naming.NewUnderscoreCodec()
	lister := gallery.NewLister(store, codec, urls, cfg.Storage.ProcessedPrefix, log)
	uploader := gallery.NewUploader(store, codec, cfg.Storage.IncomingPrefix, log)
	galleryHandler := handlers.NewGalleryHandler(lister, uploader, pages, cfg.MaxUploadBytes, log)

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(galleryHandler, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("backend", cfg.Storage.Backend).
			Str("bucket", cfg.Storage.Bucket).
			Str("url_mode", cfg.Storage.URLMode).
			Msg("Starting gallery server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close object store")
	}

	log.Info().Msg("Server exited")
}

// newURLResolver picks public or signed image URLs. The returned stop function
// ends background cache pruning.
func newURLResolver(cfg config.Storage, store objstore.Store, log zerolog.Logger) (gallery.URLResolver, func(), error) {
	if cfg.URLMode != config.URLModeSigned {
		return gallery.NewPublicURLResolver(cfg.PublicBaseURL, cfg.Bucket, cfg.ProcessedPrefix), func() {}, nil
	}

	signer, ok := store.(objstore.Signer)
	if !ok {
		return nil, nil, fmt.Errorf("backend %s cannot sign URLs", cfg.Backend)
	}

	resolver, err := gallery.NewSignedURLResolver(signer, cfg.SignedURLTTL, cfg.URLCacheTTL)
	if err != nil {
		return nil, nil, err
	}

	ticker := time.NewTicker(cfg.URLCacheTTL)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := resolver.Prune(); n > 0 {
					log.Debug().Int("removed", n).Msg("Pruned signed URL cache")
				}
			case <-done:
				return
			}
		}
	}()

	return resolver, func() {
		ticker.Stop()
		close(done)
	}, nil
}
