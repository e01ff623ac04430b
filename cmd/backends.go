package cmd

import (
	"context"
	"fmt"
	"time"

	"video-stills/infrastructure/config"
	"video-stills/infrastructure/ffmpeg"
	"video-stills/infrastructure/logging"
	"video-stills/infrastructure/mpeg"
	"video-stills/infrastructure/opencv"
	"video-stills/infrastructure/source"
)

// newSourceRouter wires every decoding backend behind one opener
func newSourceRouter(ctx context.Context, cfg *config.Config, backendName, videoPath string) (*source.Router, error) {
	backend, err := source.ParseBackend(backendName)
	if err != nil {
		return nil, err
	}

	ff := ffmpeg.NewOpener(
		ffmpeg.WithFFmpegPath(cfg.Export.FFmpegPath),
		ffmpeg.WithFFprobePath(cfg.Export.FFprobePath),
	)

	router := source.NewRouter(backend,
		source.WithOpener(source.BackendFFmpeg, ff),
		source.WithOpener(source.BackendMPEG, mpeg.NewOpener()),
		source.WithOpener(source.BackendOpenCV, opencv.NewOpener()),
		source.WithOpenCVAvailable(opencv.Available()),
		source.WithLogger(logging.WithComponent("source")),
	)

	// Verify ffmpeg is available when it will be used
	if router.Select(videoPath) == source.BackendFFmpeg {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := ff.VerifyInstalled(verifyCtx); err != nil {
			return nil, fmt.Errorf("ffmpeg verification failed: %w", err)
		}
	}

	return router, nil
}
