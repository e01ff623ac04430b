package imagefile

import (
	"fmt"
	"image"

	"video-stills/domain/frames"

	"github.com/disintegration/imaging"
)

// DefaultQuality matches the JPEG quality OpenCV's imwrite uses by default
const DefaultQuality = 95

// Writer implements frames.ImageWriter, encoding by file extension
type Writer struct {
	quality int
}

// WriterOption is a functional option for configuring Writer
type WriterOption func(*Writer)

// WithQuality sets the JPEG quality (1-100); out of range values are ignored
func WithQuality(q int) WriterOption {
	return func(w *Writer) {
		if q >= 1 && q <= 100 {
			w.quality = q
		}
	}
}

// NewWriter creates a new image writer
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{quality: DefaultQuality}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write implements frames.ImageWriter. The parent directory must exist.
func (w *Writer) Write(path string, img image.Image) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(w.quality)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Cropper implements frames.Cropper
type Cropper struct{}

// NewCropper creates a new cropper
func NewCropper() *Cropper {
	return &Cropper{}
}

// Crop returns a copy of the kept region. An uncropped frame is returned as is.
func (c *Cropper) Crop(img image.Image, crop frames.Crop) image.Image {
	if crop.IsZero() {
		return img
	}
	return imaging.Crop(img, crop.Bounds(img.Bounds()))
}

// Ensure implementations satisfy the domain ports
var (
	_ frames.ImageWriter = (*Writer)(nil)
	_ frames.Cropper     = (*Cropper)(nil)
)
