package source

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// renderPDFPage opens the deck, renders a single page and closes it again.
// Opening per call keeps the resolver safe for concurrent clip preparation;
// fitz documents are not goroutine-safe.
func (r *FileResolver) renderPDFPage(path string, page int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf %s: %v", ErrUnresolvable, path, err)
	}
	defer doc.Close()

	if page > doc.NumPage() {
		return nil, fmt.Errorf("%w: %s has %d pages, page %d requested",
			ErrUnresolvable, path, doc.NumPage(), page)
	}

	img, err := doc.ImageDPI(page-1, float64(r.DPI))
	if err != nil {
		return nil, fmt.Errorf("%w: render %s@%d: %v", ErrUnresolvable, path, page, err)
	}
	return img, nil
}
