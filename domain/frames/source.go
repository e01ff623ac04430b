package frames

import (
	"context"
	"image"
)

// VideoSource is an open, seekable video stream.
// A source is owned by a single export run and must not be used after Close.
type VideoSource interface {
	// FrameRate returns the frames per second, assumed constant for the whole video
	FrameRate() float64

	// FrameCount returns the total number of frames reported by the container
	FrameCount() int

	// Seek positions the source so the next ReadFrame returns frame index
	Seek(index int) error

	// ReadFrame decodes the frame at the current position and advances by one.
	// It returns an error wrapping ErrFrameDecode when no frame is available.
	ReadFrame() (image.Image, error)

	// Close releases the underlying decoder
	Close() error
}

// VideoOpener opens video sources by path
// This is a port that can be implemented by different decoding backends
type VideoOpener interface {
	Open(ctx context.Context, path string) (VideoSource, error)
}

// ImageWriter persists a decoded frame to disk
type ImageWriter interface {
	// Write encodes img and writes it to path, replacing any existing file
	Write(path string, img image.Image) error
}

// Cropper cuts a crop rectangle out of a frame
type Cropper interface {
	Crop(img image.Image, crop Crop) image.Image
}

// FileChecker checks for file existence
type FileChecker interface {
	Exists(path string) bool
}

// DurationSeconds returns the whole-second length of the source, truncated
func DurationSeconds(src VideoSource) int {
	fps := src.FrameRate()
	if fps <= 0 {
		return 0
	}
	return int(float64(src.FrameCount()) / fps)
}

// FragmentWriter persists a rendered fragment, truncating any previous file
type FragmentWriter interface {
	WriteFragment(path string, f *Fragment) error
}
