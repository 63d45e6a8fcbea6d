package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/api"
	"github.com/dvloznov/photo-gallery/internal/api/handlers"
	"github.com/dvloznov/photo-gallery/internal/gallery"
	"github.com/dvloznov/photo-gallery/internal/naming"
	"github.com/dvloznov/photo-gallery/internal/objstore/memory"
	"github.com/dvloznov/photo-gallery/internal/web"
)

const (
	bucket    = "script-resize"
	incoming  = "img/before/"
	processed = "img/after/"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR-fake-image")

func newTestServer(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	codec := naming.NewUnderscoreCodec()
	log := zerolog.Nop()

	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	lister := gallery.NewLister(store, codec, gallery.NewPublicURLResolver("", bucket, processed), processed, log)
	uploader := gallery.NewUploader(store, codec, incoming, log)
	h := handlers.NewGalleryHandler(lister, uploader, pages, 10<<20, log)

	return api.NewRouter(h, log), store
}

type formFile struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		if f.contentType != "" {
			hdr.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func TestRouter_IndexRedirectsHome(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/home" {
		t.Errorf("Location = %q, want /home", loc)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestRouter_Pages(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/home", "/upload"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRouter_UploadThenList(t *testing.T) {
	srv, store := newTestServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"name": "  Alice  "},
		formFile{field: "image", filename: "beach.png", contentType: "image/png", data: pngBytes},
	)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/home" {
		t.Errorf("Location = %q, want /home", loc)
	}

	obj, ok := store.Get(incoming + "Alice_beach.png")
	if !ok {
		t.Fatal("Expected uploaded object under the incoming prefix")
	}
	if !bytes.Equal(obj.Data, pngBytes) || obj.ContentType != "image/png" {
		t.Errorf("stored object = %q (%s)", obj.Data, obj.ContentType)
	}

	// The resize worker is external; emulate it by writing the processed copies.
	ctx := context.Background()
	for _, key := range []string{processed + "Alice_beach.png", processed + "c.png", processed} {
		if err := store.Put(ctx, key, bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/jpeg"); err != nil {
			t.Fatalf("Put(%q): %v", key, err)
		}
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var images []gallery.ImageRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &images); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []gallery.ImageRecord{
		{Filename: "Alice_beach.png", URL: "https://storage.googleapis.com/script-resize/img/after/Alice_beach.png", Uploader: "Alice"},
		{Filename: "c.png", URL: "https://storage.googleapis.com/script-resize/img/after/c.png", Uploader: "unknown"},
	}
	if len(images) != len(want) {
		t.Fatalf("images = %+v, want %+v", images, want)
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("images[%d] = %+v, want %+v", i, images[i], want[i])
		}
	}
}

func TestRouter_ListImagesEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestRouter_UploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		files   []formFile
		message string
	}{
		{
			name:    "blank name",
			fields:  map[string]string{"name": "   "},
			files:   []formFile{{field: "image", filename: "a.png", contentType: "image/png", data: pngBytes}},
			message: "Name and image are required.",
		},
		{
			name:    "missing name",
			files:   []formFile{{field: "image", filename: "a.png", contentType: "image/png", data: pngBytes}},
			message: "Name and image are required.",
		},
		{
			name:    "missing file",
			fields:  map[string]string{"name": "Bob"},
			message: "Name and image are required.",
		},
		{
			name:    "empty file",
			fields:  map[string]string{"name": "Bob"},
			files:   []formFile{{field: "image", filename: "a.png", contentType: "image/png"}},
			message: "The selected file is empty.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := newTestServer(t)

			body, contentType := multipartBody(t, tt.fields, tt.files...)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.message) {
				t.Errorf("Expected form with %q, got: %s", tt.message, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `<form action="/upload"`) {
				t.Error("Expected the upload form to be re-rendered")
			}
			if store.Len() != 0 {
				t.Errorf("store holds %d objects, want none", store.Len())
			}
		})
	}
}

func TestRouter_UploadNotMultipart(t *testing.T) {
	srv, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("name=Bob"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d objects, want none", store.Len())
	}
}

func TestRouter_QRCode(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name      string
		target    string
		forwarded string
		want      string
	}{
		{"http", "http://gallery.test:8080/qrcode", "", "http://gallery.test:8080/home"},
		{"behind proxy", "http://gallery.example/qrcode", "https", "https://gallery.example/home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %q, want image/png", ct)
			}

			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("response is not a PNG: %v", err)
			}
			bmp, err := gozxing.NewBinaryBitmapFromImage(img)
			if err != nil {
				t.Fatalf("binary bitmap: %v", err)
			}
			result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
			if err != nil {
				t.Fatalf("decode qr: %v", err)
			}
			if result.GetText() != tt.want {
				t.Errorf("QR content = %q, want %q", result.GetText(), tt.want)
			}
		})
	}
}

func TestRouter_StaticAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/slider.js", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/images") {
		t.Errorf("static asset: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/images", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

type panickingLister struct{}

func (panickingLister) List(ctx context.Context) ([]gallery.ImageRecord, error) {
	panic("listing exploded")
}

func TestRouter_PanicIsAccessLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	h := handlers.NewGalleryHandler(panickingLister{}, nil, pages, 10<<20, log)
	srv := api.NewRouter(h, log)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var accessLine map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		if entry["message"] == "HTTP request" {
			accessLine = entry
		}
	}
	if accessLine == nil {
		t.Fatalf("no access log line in %s", buf.String())
	}
	if accessLine["status"] != float64(http.StatusInternalServerError) {
		t.Errorf("logged status = %v, want 500", accessLine["status"])
	}
	if accessLine["level"] != "error" {
		t.Errorf("logged level = %v, want error", accessLine["level"])
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Error("Expected the panic to be logged")
	}
}
