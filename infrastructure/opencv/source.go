//go:build opencv

package opencv

import (
	"context"
	"fmt"
	"image"

	"video-stills/domain/frames"

	"gocv.io/x/gocv"
)

// Opener implements frames.VideoOpener using GoCV's VideoCapture
type Opener struct{}

// NewOpener creates a new OpenCV-backed opener
func NewOpener() *Opener {
	return &Opener{}
}

// Available reports whether this build includes OpenCV support
func Available() bool {
	return true
}

// Open implements frames.VideoOpener
func (o *Opener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", frames.ErrSourceOpen, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w %s: capture not opened", frames.ErrSourceOpen, path)
	}

	return &Source{
		path:  path,
		vc:    vc,
		frame: gocv.NewMat(),
	}, nil
}

// Source wraps an open VideoCapture and the Mat frames are decoded into
type Source struct {
	path   string
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	closed bool
}

// FrameRate implements frames.VideoSource
func (s *Source) FrameRate() float64 {
	return s.vc.Get(gocv.VideoCaptureFPS)
}

// FrameCount implements frames.VideoSource
func (s *Source) FrameCount() int {
	return int(s.vc.Get(gocv.VideoCaptureFrameCount))
}

// Seek implements frames.VideoSource
func (s *Source) Seek(index int) error {
	if s.closed {
		return fmt.Errorf("video source %s is closed", s.path)
	}
	s.vc.Set(gocv.VideoCapturePosFrames, float64(index))
	return nil
}

// ReadFrame implements frames.VideoSource
func (s *Source) ReadFrame() (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: video source %s is closed", frames.ErrFrameDecode, s.path)
	}
	if ok := s.vc.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, fmt.Errorf("%w: no frame at current position", frames.ErrFrameDecode)
	}

	img, err := s.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", frames.ErrFrameDecode, err)
	}
	return img, nil
}

// Close implements frames.VideoSource, releasing the Mat and the capture
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.frame.Close()
	return s.vc.Close()
}

// Ensure implementations satisfy the domain ports
var (
	_ frames.VideoOpener = (*Opener)(nil)
	_ frames.VideoSource = (*Source)(nil)
)
