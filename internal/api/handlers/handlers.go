package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/api/middleware"
	"github.com/dvloznov/photo-gallery/internal/gallery"
	"github.com/dvloznov/photo-gallery/internal/logger"
	"github.com/dvloznov/photo-gallery/internal/qr"
	"github.com/dvloznov/photo-gallery/internal/web"
)

// Messages shown on the upload form.
const (
	msgRequired = "Name and image are required."
	msgEmpty    = "The selected file is empty."
)

// multipartEnvelope is the request allowance for form fields, part headers and
// boundaries on top of the file limit.
const multipartEnvelope = 64 << 10

// ImageLister lists processed images.
type ImageLister interface {
	List(ctx context.Context) ([]gallery.ImageRecord, error)
}

// ImageUploader stores new submissions.
type ImageUploader interface {
	Upload(ctx context.Context, req gallery.UploadRequest) (string, error)
}

// PageRenderer renders HTML pages.
type PageRenderer interface {
	Render(w io.Writer, name string, data interface{}) error
}

// GalleryHandler handles the gallery pages, uploads, the image API and QR codes.
type GalleryHandler struct {
	lister         ImageLister
	uploader       ImageUploader
	pages          PageRenderer
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(lister ImageLister, uploader ImageUploader, pages PageRenderer, maxUploadBytes int64, log zerolog.Logger) *GalleryHandler {
	return &GalleryHandler{
		lister:         lister,
		uploader:       uploader,
		pages:          pages,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Index handles GET /
func (h *GalleryHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home", http.StatusFound)
}

// Home handles GET /home
func (h *GalleryHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.HomePage, nil)
}

// UploadForm handles GET /upload
func (h *GalleryHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.UploadPage, web.UploadForm{})
}

// Upload handles POST /upload
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := *h.requestLog(r)

	tooLargeMsg := fmt.Sprintf("File too large (max %d MB).", h.maxUploadBytes>>20)
	requestLimit := h.maxUploadBytes + multipartEnvelope
	if r.ContentLength > requestLimit {
		h.uploadError(w, r, tooLargeMsg, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, requestLimit)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadError(w, r, tooLargeMsg, "")
			return
		}
		h.uploadError(w, r, msgRequired, "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := strings.TrimSpace(r.FormValue("name"))
	file, header, err := r.FormFile("image")
	if err != nil || name == "" {
		h.uploadError(w, r, msgRequired, name)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		h.uploadError(w, r, tooLargeMsg, name)
		return
	}

	log = logger.WithFields(log, map[string]interface{}{
		"uploader": name,
		"filename": header.Filename,
		"size":     header.Size,
	})

	key, err := h.uploader.Upload(r.Context(), gallery.UploadRequest{
		Name:        name,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		if gallery.IsValidationError(err) {
			msg := msgRequired
			if errors.Is(err, gallery.ErrEmptyPayload) {
				msg = msgEmpty
			}
			h.uploadError(w, r, msg, name)
			return
		}
		log.Error().Err(err).Msg("Failed to upload image")
		http.Error(w, "Upload failed", http.StatusInternalServerError)
		return
	}

	log.Info().Str("key", key).Msg("Upload accepted")
	http.Redirect(w, r, "/home", http.StatusFound)
}

// ListImages handles GET /api/images
func (h *GalleryHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.lister.List(r.Context())
	if err != nil {
		h.requestLog(r).Error().Err(err).Msg("Failed to list images")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}

	// Return array directly for frontend compatibility
	if images == nil {
		images = []gallery.ImageRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, images)
}

// QRCode handles GET /qrcode
func (h *GalleryHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	target := qr.HomeURL(r)

	png, err := qr.PNG(target, qr.DefaultSize)
	if err != nil {
		h.requestLog(r).Error().Err(err).Str("target", target).Msg("Failed to generate QR code")
		http.Error(w, "QR code generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// Health handles GET /health
func (h *GalleryHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *GalleryHandler) uploadError(w http.ResponseWriter, r *http.Request, msg, name string) {
	h.render(w, r, http.StatusBadRequest, web.UploadPage, web.UploadForm{Error: msg, Name: name})
}

func (h *GalleryHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := h.pages.Render(&buf, page, data); err != nil {
		h.requestLog(r).Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// requestLog returns the request-scoped logger installed by middleware.RequestID,
// or the handler's own logger.
func (h *GalleryHandler) requestLog(r *http.Request) *zerolog.Logger {
	if l, ok := r.Context().Value(logger.LoggerKey).(zerolog.Logger); ok {
		return &l
	}
	return &h.log
}
