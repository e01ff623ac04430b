// Package mpeg decodes MPEG-1 program streams in pure Go, so .mpg files can
// be exported without ffmpeg or OpenCV installed.
package mpeg

import (
	"context"
	"fmt"
	"image"
	"os"

	"video-stills/domain/frames"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/mpeg"
)

// Opener implements frames.VideoOpener for MPEG-1 files
type Opener struct{}

// NewOpener creates a new MPEG-1 opener
func NewOpener() *Opener {
	return &Opener{}
}

// Open implements frames.VideoOpener. The frame count comes from decoding the
// whole stream once; the demuxer's duration can miss the last few frames.
func (o *Opener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", frames.ErrSourceOpen, path, err)
	}

	mpg, err := mpeg.New(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w %s: %v", frames.ErrSourceOpen, path, err)
	}

	fps := mpg.Framerate()
	if fps <= 0 {
		file.Close()
		return nil, fmt.Errorf("%w %s: no MPEG-1 video stream", frames.ErrSourceOpen, path)
	}
	mpg.SetAudioEnabled(false)

	src := &Source{
		file: file,
		mpg:  mpg,
		fps:  fps,
	}
	for src.decodeNext() != nil {
	}
	if src.next == 0 {
		file.Close()
		return nil, fmt.Errorf("%w %s: no decodable video frames", frames.ErrSourceOpen, path)
	}
	src.count = src.next
	src.rewind()

	return src, nil
}

// Source is an open MPEG-1 file. Frames only decode in stream order, so a
// read moves forward from the decoder position and rewinds for earlier frames.
type Source struct {
	file   *os.File
	mpg    *mpeg.MPEG
	fps    float64
	count  int
	pos    int
	next   int
	closed bool
}

// FrameRate implements frames.VideoSource
func (s *Source) FrameRate() float64 {
	return s.fps
}

// FrameCount implements frames.VideoSource
func (s *Source) FrameCount() int {
	return s.count
}

// Seek implements frames.VideoSource
func (s *Source) Seek(index int) error {
	if s.closed {
		return fmt.Errorf("video source %s is closed", s.file.Name())
	}
	s.pos = index
	return nil
}

// ReadFrame implements frames.VideoSource. The decoder reuses its buffers,
// so the frame is copied before it is returned.
func (s *Source) ReadFrame() (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: video source %s is closed", frames.ErrFrameDecode, s.file.Name())
	}
	if s.pos < 0 || s.pos >= s.count {
		return nil, fmt.Errorf("%w: frame %d out of range (0-%d)", frames.ErrFrameDecode, s.pos, s.count-1)
	}

	if s.pos < s.next {
		s.rewind()
	}
	for {
		frame := s.decodeNext()
		if frame == nil {
			// position is unknown after a failed decode
			s.next = s.count
			return nil, fmt.Errorf("%w: frame %d", frames.ErrFrameDecode, s.pos)
		}
		if s.next-1 == s.pos {
			s.pos++
			return imaging.Clone(frame.YCbCr()), nil
		}
	}
}

// decodeNext decodes the frame at s.next and advances it. At the end of the
// stream the decoder signals Done, which is drained so later reads never block.
func (s *Source) decodeNext() *mpeg.Frame {
	frame := s.mpg.DecodeVideo()
	if frame == nil {
		select {
		case <-s.mpg.Done():
		default:
		}
		return nil
	}
	s.next++
	return frame
}

func (s *Source) rewind() {
	s.mpg.Rewind()
	s.next = 0
}

// Close implements frames.VideoSource
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Ensure implementations satisfy the domain ports
var (
	_ frames.VideoOpener = (*Opener)(nil)
	_ frames.VideoSource = (*Source)(nil)
)
