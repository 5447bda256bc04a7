package media

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	DefaultThumbnailMaxSize = 224
	DefaultThumbnailQuality = 75
)

// Thumbnailer produces the bounded JPEG kept for every distinct image.
type Thumbnailer struct {
	MaxSize int
	Quality int
}

func NewThumbnailer(maxSize, quality int) *Thumbnailer {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailMaxSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbnailQuality
	}
	return &Thumbnailer{MaxSize: maxSize, Quality: quality}
}

// ThumbnailSize returns the dimensions where the longest side is at most maxSize.
// Images already within bounds keep their size.
func ThumbnailSize(width, height, maxSize int) (int, int) {
	var newWidth, newHeight int
	if width > height {
		if width <= maxSize {
			newWidth, newHeight = width, height
		} else {
			newWidth = maxSize
			newHeight = int(math.Round(float64(height) * (float64(maxSize) / float64(width))))
		}
	} else {
		if height <= maxSize {
			newWidth, newHeight = width, height
		} else {
			newHeight = maxSize
			newWidth = int(math.Round(float64(width) * (float64(maxSize) / float64(height))))
		}
	}
	return max(1, newWidth), max(1, newHeight)
}

// Generate creates a JPEG thumbnail where the longest side is at most MaxSize.
func (t *Thumbnailer) Generate(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("invalid original image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	newWidth, newHeight := ThumbnailSize(bounds.Dx(), bounds.Dy(), t.MaxSize)
	thumb := image.Image(img)
	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		thumb = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(t.Quality)); err != nil {
		return nil, fmt.Errorf("thumbnail encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}
