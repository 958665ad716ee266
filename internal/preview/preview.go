// Package preview renders page thumbnails with MuPDF.
package preview

import (
	"errors"
	"fmt"
	"image"

	fitz "github.com/gen2brain/go-fitz"
)

const (
	// DefaultMaxSize bounds the longest side of a thumbnail, in pixels.
	DefaultMaxSize = 150
	// DefaultGridLimit is how many pages the split preview shows.
	DefaultGridLimit = 10

	baseDPI = 72.0
)

var ErrPageOutOfRange = errors.New("page out of range")

// Thumbnail renders the 0-indexed page as a PNG whose longest side is at most
// maxSize pixels. Pages are never scaled up beyond 72 DPI.
func Thumbnail(data []byte, page, maxSize int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}
	defer doc.Close()

	return render(doc, page, maxSize)
}

// Grid renders the first limit pages (all of them when fewer).
func Grid(data []byte, limit, maxSize int) ([][]byte, error) {
	if limit <= 0 {
		limit = DefaultGridLimit
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}
	defer doc.Close()

	n := min(limit, doc.NumPage())
	thumbs := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		png, err := render(doc, i, maxSize)
		if err != nil {
			return nil, err
		}
		thumbs = append(thumbs, png)
	}
	return thumbs, nil
}

func render(doc *fitz.Document, page, maxSize int) ([]byte, error) {
	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page+1, doc.NumPage())
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	bounds, err := doc.Bound(page)
	if err != nil {
		return nil, fmt.Errorf("failed to measure page %d: %w", page+1, err)
	}
	png, err := doc.ImagePNG(page, FitDPI(bounds, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return png, nil
}

// FitDPI is the resolution at which a page of the given bounds (in points)
// fits in a maxSize square.
func FitDPI(bounds image.Rectangle, maxSize int) float64 {
	longest := max(bounds.Dx(), bounds.Dy())
	if longest <= maxSize || longest == 0 {
		return baseDPI
	}
	return baseDPI * float64(maxSize) / float64(longest)
}
