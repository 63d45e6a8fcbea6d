// Package api wires the gallery's HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/api/handlers"
	"github.com/dvloznov/photo-gallery/internal/api/middleware"
	"github.com/dvloznov/photo-gallery/internal/web"
)

// NewRouter registers every route and wraps them in the standard middleware chain.
func NewRouter(gallery *handlers.GalleryHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         3600,
	}))

	r.Get("/", gallery.Index)
	r.Get("/home", gallery.Home)
	r.Get("/upload", gallery.UploadForm)
	r.Post("/upload", gallery.Upload)
	r.Get("/api/images", gallery.ListImages)
	r.Get("/qrcode", gallery.QRCode)
	r.Get("/health", gallery.Health)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	return r
}
