// Package source resolves segment image references into decoded images.
// A reference is either a plain image file (png/jpeg) or a page inside a
// PDF deck, written as "deck.pdf@N" (1-based page number).
package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"
)

// ErrUnresolvable marks a reference whose asset cannot be read. Callers
// treat it as a per-segment failure, not a fatal one.
var ErrUnresolvable = errors.New("image reference unresolvable")

// Resolver turns an image reference into a decoded image.
type Resolver interface {
	Resolve(ref string) (image.Image, error)
}

// FileResolver resolves references against the local filesystem.
// PDF page references are rendered through go-fitz at the configured DPI.
type FileResolver struct {
	DPI int
}

// NewFileResolver returns a resolver rendering PDF pages at dpi
// (150 when dpi <= 0).
func NewFileResolver(dpi int) *FileResolver {
	if dpi <= 0 {
		dpi = 150
	}
	return &FileResolver{DPI: dpi}
}

func (r *FileResolver) Resolve(ref string) (image.Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUnresolvable)
	}

	if path, page, ok := splitPDFRef(ref); ok {
		return r.renderPDFPage(path, page)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvable, ref, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnresolvable, ref, err)
	}
	return img, nil
}

// splitPDFRef parses "deck.pdf@3" into (path, page index, true).
func splitPDFRef(ref string) (string, int, bool) {
	at := strings.LastIndex(ref, "@")
	if at <= 0 {
		return "", 0, false
	}
	path := ref[:at]
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return "", 0, false
	}
	page, err := strconv.Atoi(ref[at+1:])
	if err != nil || page < 1 {
		return "", 0, false
	}
	return path, page, true
}
