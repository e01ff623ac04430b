package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"video-stills/domain/frames"

	"github.com/disintegration/imaging"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// Opener implements frames.VideoOpener using ffprobe and ffmpeg
type Opener struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
}

// OpenerOption is a functional option for configuring Opener
type OpenerOption func(*Opener)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) OpenerOption {
	return func(o *Opener) {
		if path != "" {
			o.ffmpegPath = path
		}
	}
}

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) OpenerOption {
	return func(o *Opener) {
		if path != "" {
			o.ffprobePath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) OpenerOption {
	return func(o *Opener) {
		o.runner = runner
	}
}

// NewOpener creates a new FFmpeg-based video opener
func NewOpener(opts ...OpenerOption) *Opener {
	o := &Opener{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Open implements frames.VideoOpener. The stream is probed once; frames are
// decoded lazily, one ffmpeg process per ReadFrame. ctx must outlive the
// source: it bounds every ffmpeg process the source starts, so cancelling it
// makes later reads fail.
func (o *Opener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	out, err := o.runner.Output(ctx, o.ffprobePath, probeArgs(path)...)
	if err != nil {
		return nil, fmt.Errorf("%w %s: ffprobe failed: %v", frames.ErrSourceOpen, path, err)
	}

	info, err := parseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", frames.ErrSourceOpen, path, err)
	}

	return &Source{
		ctx:    ctx,
		path:   path,
		info:   info,
		ffmpeg: o.ffmpegPath,
		runner: o.runner,
	}, nil
}

// VerifyInstalled checks that ffmpeg and ffprobe are available
func (o *Opener) VerifyInstalled(ctx context.Context) error {
	for _, bin := range []string{o.ffmpegPath, o.ffprobePath} {
		if _, err := o.runner.Output(ctx, bin, "-version"); err != nil {
			return fmt.Errorf("%s not found or not executable: %w", bin, err)
		}
	}
	return nil
}

// Source is a video opened through ffprobe; each read spawns ffmpeg.
// frames.VideoSource reads take no context, so the one given to Open is kept
// and covers the whole export run.
type Source struct {
	ctx    context.Context
	path   string
	info   StreamInfo
	ffmpeg string
	runner CommandRunner
	pos    int
	closed bool
}

// FrameRate implements frames.VideoSource
func (s *Source) FrameRate() float64 {
	return s.info.FrameRate
}

// FrameCount implements frames.VideoSource
func (s *Source) FrameCount() int {
	return s.info.FrameCount
}

// Seek implements frames.VideoSource
func (s *Source) Seek(index int) error {
	if s.closed {
		return fmt.Errorf("video source %s is closed", s.path)
	}
	s.pos = index
	return nil
}

// ReadFrame implements frames.VideoSource
func (s *Source) ReadFrame() (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: video source %s is closed", frames.ErrFrameDecode, s.path)
	}
	if s.pos < 0 || (s.info.FrameCount > 0 && s.pos >= s.info.FrameCount) {
		return nil, fmt.Errorf("%w: frame %d out of range (0-%d)", frames.ErrFrameDecode, s.pos, s.info.FrameCount-1)
	}

	out, err := s.runner.Output(s.ctx, s.ffmpeg, frameArgs(s.path, s.pos)...)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: ffmpeg failed: %v", frames.ErrFrameDecode, s.pos, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: frame %d: no data", frames.ErrFrameDecode, s.pos)
	}

	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", frames.ErrFrameDecode, s.pos, err)
	}

	s.pos++
	return img, nil
}

// Close implements frames.VideoSource. No process outlives a ReadFrame call,
// so closing only invalidates the handle.
func (s *Source) Close() error {
	s.closed = true
	return nil
}

// frameArgs selects the first frame at or after index and writes it as PNG to stdout
func frameArgs(videoPath string, index int) []string {
	return ffmpeggo.Input(videoPath).
		Filter("select", ffmpeggo.Args{fmt.Sprintf("gte(n,%d)", index)}).
		Output("pipe:", ffmpeggo.KwArgs{
			"vframes":  1,
			"format":   "image2",
			"vcodec":   "png",
			"loglevel": "error",
		}).
		GetArgs()
}

// Ensure implementations satisfy the domain ports
var (
	_ frames.VideoOpener = (*Opener)(nil)
	_ frames.VideoSource = (*Source)(nil)
)
