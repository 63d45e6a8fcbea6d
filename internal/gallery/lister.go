package gallery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/naming"
	"github.com/dvloznov/photo-gallery/internal/objstore"
)

// Lister enumerates processed images.
type Lister struct {
	store           objstore.Store
	codec           naming.NameCodec
	urls            URLResolver
	processedPrefix string
	log             zerolog.Logger
}

// NewLister creates a lister reading keys under processedPrefix.
func NewLister(store objstore.Store, codec naming.NameCodec, urls URLResolver, processedPrefix string, log zerolog.Logger) *Lister {
	return &Lister{
		store:           store,
		codec:           codec,
		urls:            urls,
		processedPrefix: processedPrefix,
		log:             log,
	}
}

// List returns one record per processed object, in store enumeration order.
// Keys equal to the prefix itself are skipped, as are objects whose URL cannot
// be resolved. A failed enumeration fails the whole call.
func (l *Lister) List(ctx context.Context) ([]ImageRecord, error) {
	keys, err := l.store.List(ctx, l.processedPrefix)
	if err != nil {
		return nil, fmt.Errorf("list processed images: %w", err)
	}

	images := make([]ImageRecord, 0, len(keys))
	for _, key := range keys {
		filename := strings.TrimPrefix(key, l.processedPrefix)
		if filename == "" {
			continue
		}

		uploader, display := l.codec.Decode(filename)

		url, err := l.urls.Resolve(ctx, key, filename)
		if err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("Skipping image without URL")
			continue
		}

		images = append(images, ImageRecord{
			Filename: display,
			URL:      url,
			Uploader: uploader,
		})
	}

	return images, nil
}
