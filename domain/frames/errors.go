package frames

import "errors"

var (
	// ErrSourceOpen is returned when the video source cannot be opened
	ErrSourceOpen = errors.New("failed to open video source")

	// ErrFrameDecode is returned when a requested frame cannot be decoded.
	// It is not fatal to an export run.
	ErrFrameDecode = errors.New("failed to decode frame")

	// ErrOutputWrite is returned when an image or fragment file cannot be written
	ErrOutputWrite = errors.New("failed to write output")

	// ErrInvalidCaptureTime is returned when a capture time cannot be parsed
	ErrInvalidCaptureTime = errors.New("invalid capture time")
)
