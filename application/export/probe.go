package export

import (
	"context"

	"video-stills/domain/frames"
)

// ProbeResult describes a video as seen by the decoding backend
type ProbeResult struct {
	FrameRate       float64
	FrameCount      int
	DurationSeconds int
}

// ProbeService reports stream metadata without extracting anything
type ProbeService struct {
	opener frames.VideoOpener
}

// NewProbeService creates a new ProbeService
func NewProbeService(opener frames.VideoOpener) *ProbeService {
	return &ProbeService{opener: opener}
}

// Probe opens the video, reads its frame rate and frame count, and releases it
func (p *ProbeService) Probe(ctx context.Context, videoPath string) (*ProbeResult, error) {
	src, err := p.opener.Open(ctx, videoPath)
	if err != nil {
		return nil, openError(videoPath, err)
	}
	defer src.Close()

	return &ProbeResult{
		FrameRate:       src.FrameRate(),
		FrameCount:      src.FrameCount(),
		DurationSeconds: frames.DurationSeconds(src),
	}, nil
}
