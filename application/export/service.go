package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"video-stills/domain/frames"

	"github.com/rs/zerolog"
)

// Input represents the input for an export operation
type Input struct {
	VideoPath    string
	CaptureTimes []float64
	OutputPrefix string
	Crop         frames.Crop

	EmitFragment         bool
	FragmentRelativePath string
	Columns              int
}

// Result contains the result of an export operation
type Result struct {
	Written         []string
	Missing         []float64
	FragmentPath    string
	FrameRate       float64
	DurationSeconds int
}

// Service extracts still frames from a video and optionally writes a LaTeX fragment
type Service struct {
	opener         frames.VideoOpener
	cropper        frames.Cropper
	images         frames.ImageWriter
	fragments      frames.FragmentWriter
	output         io.Writer
	log            zerolog.Logger
	fragmentPath   string
	indexPolicy    frames.IndexPolicy
	fragmentPolicy frames.FragmentPolicy
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithLogger sets the structured logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithFragmentPath sets where the fragment is written (default figures.tex)
func WithFragmentPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.fragmentPath = path
		}
	}
}

// WithIndexPolicy sets how capture times map to frame indices
func WithIndexPolicy(p frames.IndexPolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.indexPolicy = p
		}
	}
}

// WithFragmentPolicy sets which capture times get a subfigure
func WithFragmentPolicy(p frames.FragmentPolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.fragmentPolicy = p
		}
	}
}

// NewService creates a new export Service. Console diagnostics go to output.
func NewService(
	opener frames.VideoOpener,
	cropper frames.Cropper,
	images frames.ImageWriter,
	fragments frames.FragmentWriter,
	output io.Writer,
	opts ...Option,
) *Service {
	s := &Service{
		opener:         opener,
		cropper:        cropper,
		images:         images,
		fragments:      fragments,
		output:         output,
		log:            zerolog.Nop(),
		fragmentPath:   frames.DefaultFragmentFile,
		indexPolicy:    frames.IndexTruncate,
		fragmentPolicy: frames.FragmentAllTimes,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Export extracts one image per capture time.
// A missing frame is reported and skipped; open and write failures abort the run.
// Images written before a fatal error are left on disk.
func (s *Service) Export(ctx context.Context, input Input) (*Result, error) {
	fmt.Fprintf(s.output, "Exporting frame from %s\n", input.VideoPath)

	result, extracted, err := s.extract(ctx, input)
	if err != nil {
		return result, err
	}

	if input.EmitFragment {
		fragment := frames.NewFragment(input.FragmentRelativePath, input.Columns, s.fragmentPolicy)
		for i, t := range input.CaptureTimes {
			fragment.Add(t, extracted[i])
		}
		if err := s.fragments.WriteFragment(s.fragmentPath, fragment); err != nil {
			return result, fmt.Errorf("%w: fragment %s: %v", frames.ErrOutputWrite, s.fragmentPath, err)
		}
		result.FragmentPath = s.fragmentPath
		s.log.Debug().Str("path", s.fragmentPath).Int("entries", len(fragment.Entries())).Msg("fragment written")
	}

	fmt.Fprintln(s.output, "Export complete")
	return result, nil
}

// extract runs the decode loop. The source is closed exactly once on every path.
func (s *Service) extract(ctx context.Context, input Input) (result *Result, extracted []bool, err error) {
	src, err := s.opener.Open(ctx, input.VideoPath)
	if err != nil {
		return nil, nil, openError(input.VideoPath, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Str("video", input.VideoPath).Msg("failed to release video source")
		}
	}()

	frameRate := src.FrameRate()
	result = &Result{
		FrameRate:       frameRate,
		DurationSeconds: frames.DurationSeconds(src),
	}
	extracted = make([]bool, len(input.CaptureTimes))

	for i, t := range input.CaptureTimes {
		index := frames.FrameIndex(t, frameRate, s.indexPolicy)
		log := s.log.With().Float64("seconds", t).Int("frame", index).Logger()

		img, err := s.readFrame(src, index)
		if err != nil {
			log.Debug().Err(err).Msg("frame not decoded")
			fmt.Fprintf(s.output, "No frame at %s seconds. Video length is only %d seconds long.\n",
				frames.FormatSeconds(t), result.DurationSeconds)
			result.Missing = append(result.Missing, t)
			continue
		}

		cropped := s.cropper.Crop(img, input.Crop)
		path := frames.ImagePath(input.OutputPrefix, t)
		if err := s.images.Write(path, cropped); err != nil {
			return result, extracted, fmt.Errorf("%w: image %s: %v", frames.ErrOutputWrite, path, err)
		}

		log.Debug().Str("path", path).Stringer("bounds", cropped.Bounds()).Msg("frame written")
		result.Written = append(result.Written, path)
		extracted[i] = true
	}

	return result, extracted, nil
}

func (s *Service) readFrame(src frames.VideoSource, index int) (image.Image, error) {
	if err := src.Seek(index); err != nil {
		return nil, err
	}
	return src.ReadFrame()
}

// openError makes sure an opener failure carries frames.ErrSourceOpen
func openError(path string, err error) error {
	if errors.Is(err, frames.ErrSourceOpen) {
		return err
	}
	return fmt.Errorf("%w %s: %v", frames.ErrSourceOpen, path, err)
}
