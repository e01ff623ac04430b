package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"video-stills/domain/frames"

	"github.com/rs/zerolog"
)

// Backend names a video decoding implementation
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendFFmpeg Backend = "ffmpeg"
	BackendMPEG   Backend = "mpeg"
	BackendOpenCV Backend = "opencv"
)

// ParseBackend parses a backend name; empty selects BackendAuto
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendFFmpeg, BackendMPEG, BackendOpenCV:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backend %q: expected auto, ffmpeg, mpeg or opencv", s)
	}
}

// mpegExtensions are handled by the pure-Go decoder in auto mode
var mpegExtensions = map[string]bool{
	".mpg":  true,
	".mpeg": true,
	".m1v":  true,
}

// Router implements frames.VideoOpener by delegating to one backend per file
type Router struct {
	backend         Backend
	openers         map[Backend]frames.VideoOpener
	opencvAvailable bool
	log             zerolog.Logger
}

// RouterOption is a functional option for configuring Router
type RouterOption func(*Router)

// WithOpener registers the opener used for a backend
func WithOpener(b Backend, o frames.VideoOpener) RouterOption {
	return func(r *Router) {
		r.openers[b] = o
	}
}

// WithOpenCVAvailable tells auto mode whether OpenCV is compiled in
func WithOpenCVAvailable(ok bool) RouterOption {
	return func(r *Router) {
		r.opencvAvailable = ok
	}
}

// WithLogger sets the structured logger
func WithLogger(log zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}

// NewRouter creates a router for the configured backend
func NewRouter(backend Backend, opts ...RouterOption) *Router {
	r := &Router{
		backend: backend,
		openers: make(map[Backend]frames.VideoOpener),
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Select returns the backend that will open path
func (r *Router) Select(path string) Backend {
	if r.backend != BackendAuto && r.backend != "" {
		return r.backend
	}
	if mpegExtensions[strings.ToLower(filepath.Ext(path))] {
		return BackendMPEG
	}
	if r.opencvAvailable {
		return BackendOpenCV
	}
	return BackendFFmpeg
}

// Open implements frames.VideoOpener
func (r *Router) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	backend := r.Select(path)
	opener, ok := r.openers[backend]
	if !ok {
		return nil, fmt.Errorf("%w %s: no opener registered for backend %q", frames.ErrSourceOpen, path, backend)
	}

	r.log.Debug().Str("video", path).Str("backend", string(backend)).Msg("opening video")
	return opener.Open(ctx, path)
}

// Ensure Router implements frames.VideoOpener
var _ frames.VideoOpener = (*Router)(nil)
