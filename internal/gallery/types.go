package gallery

import (
	"context"
	"io"
)

// ImageRecord is a processed image as exposed to the gallery page and the JSON API.
// It is materialized per listing and never persisted.
type ImageRecord struct {
	// Filename is the storage key with the processed prefix stripped.
	Filename string `json:"filename"`

	// URL is where a browser can fetch the image.
	URL string `json:"url"`

	// Uploader is the name recovered from Filename.
	Uploader string `json:"uploader"`
}

// UploadRequest is a user submission waiting to be written under the incoming prefix.
type UploadRequest struct {
	// Name is the uploader's display name. Surrounding whitespace is ignored.
	Name string

	// Filename is the client-side name of the uploaded file.
	Filename string

	// ContentType is the declared media type; sniffed from Body when empty.
	ContentType string

	// Size is the payload length, or -1 if unknown.
	Size int64

	// Body streams the payload.
	Body io.Reader
}

// URLResolver turns a processed object into a browser-accessible URL.
type URLResolver interface {
	// Resolve returns the URL for the object stored at key (full key, prefix included)
	// whose stripped name is filename.
	Resolve(ctx context.Context, key, filename string) (string, error)
}
