package filesystem

import (
	"fmt"
	"os"

	"video-stills/domain/frames"
)

// FragmentFile implements frames.FragmentWriter on the local filesystem
type FragmentFile struct{}

// NewFragmentFile creates a new fragment file writer
func NewFragmentFile() *FragmentFile {
	return &FragmentFile{}
}

// WriteFragment creates or truncates path and renders f into it
func (w *FragmentFile) WriteFragment(path string, f *frames.Fragment) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create fragment file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close fragment file: %w", cerr)
		}
	}()

	if _, err := f.WriteTo(file); err != nil {
		return fmt.Errorf("failed to write fragment file: %w", err)
	}
	return nil
}

// Ensure FragmentFile implements frames.FragmentWriter
var _ frames.FragmentWriter = (*FragmentFile)(nil)
