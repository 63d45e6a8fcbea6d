// Package qr renders QR codes that point visitors at the gallery home page.
package qr

import (
	"fmt"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the default PNG edge length in pixels.
const DefaultSize = 256

// HomeURL returns the absolute URL of /home as seen by the client that sent r.
// X-Forwarded-Proto wins over the connection's own scheme so the link stays
// correct behind a TLS-terminating proxy.
func HomeURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		// Proxies may append values: "https, http".
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return fmt.Sprintf("%s://%s/home", scheme, r.Host)
}

// PNG encodes content as a QR code image of size x size pixels.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
