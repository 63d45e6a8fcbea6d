package naming

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator delimits the uploader name from the original filename in a storage key.
	Separator = "_"

	// UnknownUploader is reported for keys that carry no separator.
	UnknownUploader = "unknown"
)

var (
	// ErrInvalidUpload is the parent of every validation error returned by Encode.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrEmptyUploader is returned when the uploader name is blank.
	ErrEmptyUploader = fmt.Errorf("%w: uploader name is required", ErrInvalidUpload)

	// ErrEmptyFilename is returned when the original filename is blank.
	ErrEmptyFilename = fmt.Errorf("%w: filename is required", ErrInvalidUpload)
)

// NameCodec associates an uploader with a stored image.
// Implementations must keep Decode pure: identical keys always decode identically.
type NameCodec interface {
	// Encode builds the storage key (without any prefix) for an upload.
	Encode(uploader, originalFilename string) (string, error)

	// Decode recovers the uploader and display filename from a key with its prefix stripped.
	Decode(key string) (uploader, filename string)
}

// UnderscoreCodec stores the uploader as the first "_"-separated segment of the key.
// Separators inside the uploader or filename are not escaped; on decode the first
// segment always wins.
type UnderscoreCodec struct{}

// NewUnderscoreCodec returns the default codec.
func NewUnderscoreCodec() UnderscoreCodec {
	return UnderscoreCodec{}
}

// Encode implements NameCodec.
func (UnderscoreCodec) Encode(uploader, originalFilename string) (string, error) {
	uploader = strings.TrimSpace(uploader)
	if uploader == "" {
		return "", ErrEmptyUploader
	}
	if strings.TrimSpace(originalFilename) == "" {
		return "", ErrEmptyFilename
	}
	return uploader + Separator + originalFilename, nil
}

// Decode implements NameCodec.
// e.g. "Alice_beach.jpg" → ("Alice", "Alice_beach.jpg"), "photo.png" → ("unknown", "photo.png")
func (UnderscoreCodec) Decode(key string) (string, string) {
	if before, _, found := strings.Cut(key, Separator); found {
		return before, key
	}
	return UnknownUploader, key
}

var _ NameCodec = UnderscoreCodec{}
