package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/naming"
	"github.com/dvloznov/photo-gallery/internal/objstore"
)

// sniffLen is how many leading bytes are inspected to detect a content type.
const sniffLen = 3072

// ErrEmptyPayload is returned when the uploaded file has no content.
var ErrEmptyPayload = fmt.Errorf("%w: file is empty", naming.ErrInvalidUpload)

// IsValidationError reports whether err was caused by bad user input
// rather than by the store.
func IsValidationError(err error) bool {
	return errors.Is(err, naming.ErrInvalidUpload)
}

// Uploader writes user submissions under the incoming prefix.
type Uploader struct {
	store          objstore.Store
	codec          naming.NameCodec
	incomingPrefix string
	log            zerolog.Logger
}

// NewUploader creates an uploader writing under incomingPrefix.
func NewUploader(store objstore.Store, codec naming.NameCodec, incomingPrefix string, log zerolog.Logger) *Uploader {
	return &Uploader{
		store:          store,
		codec:          codec,
		incomingPrefix: incomingPrefix,
		log:            log,
	}
}

// Upload validates req, encodes its key and writes it to the store.
// It returns the full object key. Validation errors are returned before
// anything is written.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (string, error) {
	name, err := u.codec.Encode(req.Name, req.Filename)
	if err != nil {
		return "", err
	}
	if req.Body == nil {
		return "", ErrEmptyPayload
	}

	// Seekable sources (multipart.File, *os.File) are rewound after sniffing
	// and handed to the store as is, so backends can hash and retry them.
	seeker, seekable := req.Body.(io.ReadSeeker)
	var start int64
	if seekable {
		if start, err = seeker.Seek(0, io.SeekCurrent); err != nil {
			seekable = false
		}
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(req.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read upload %q: %w", req.Filename, err)
	}
	if n == 0 {
		return "", ErrEmptyPayload
	}
	head = head[:n]

	contentType := req.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(head).String()
	}

	key := u.incomingPrefix + name
	var body io.Reader = io.MultiReader(bytes.NewReader(head), req.Body)
	if seekable {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind upload %q: %w", req.Filename, err)
		}
		body = seeker
	}

	if err := u.store.Put(ctx, key, body, req.Size, contentType); err != nil {
		return "", fmt.Errorf("upload %q: %w", key, err)
	}

	u.log.Info().
		Str("key", key).
		Str("content_type", contentType).
		Int64("size", req.Size).
		Msg("Image uploaded")

	return key, nil
}
