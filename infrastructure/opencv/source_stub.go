//go:build !opencv

package opencv

import (
	"context"
	"fmt"

	"video-stills/domain/frames"
)

// Opener is a stub when GoCV/OpenCV is not available
type Opener struct{}

// NewOpener creates a stub opener (requires building with -tags=opencv)
func NewOpener() *Opener {
	return &Opener{}
}

// Available reports whether this build includes OpenCV support
func Available() bool {
	return false
}

// Open returns an error indicating OpenCV is not available
func (o *Opener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	return nil, fmt.Errorf("%w %s: opencv backend not available: build with '-tags=opencv' and install OpenCV/GoCV", frames.ErrSourceOpen, path)
}

// Ensure Opener implements frames.VideoOpener
var _ frames.VideoOpener = (*Opener)(nil)
