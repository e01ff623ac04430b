package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"video-stills/domain/frames"
)

// fakeSource is an in-memory video of solid frames
type fakeSource struct {
	fps     float64
	count   int
	width   int
	height  int
	pos     int
	seeks   []int
	closes  int
	readErr error
}

func (f *fakeSource) FrameRate() float64 { return f.fps }
func (f *fakeSource) FrameCount() int    { return f.count }

func (f *fakeSource) Seek(index int) error {
	f.seeks = append(f.seeks, index)
	f.pos = index
	return nil
}

func (f *fakeSource) ReadFrame() (image.Image, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.pos < 0 || f.pos >= f.count {
		return nil, fmt.Errorf("%w: index %d past end", frames.ErrFrameDecode, f.pos)
	}
	f.pos++
	return image.NewRGBA(image.Rect(0, 0, f.width, f.height)), nil
}

func (f *fakeSource) Close() error {
	f.closes++
	return nil
}

// mockOpener records Open calls
type mockOpener struct {
	source  *fakeSource
	openErr error
	opens   []string
}

func (m *mockOpener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	m.opens = append(m.opens, path)
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.source, nil
}

type boundsCropper struct{}

func (boundsCropper) Crop(img image.Image, crop frames.Crop) image.Image {
	return image.NewRGBA(crop.Bounds(img.Bounds()))
}

// mockImageWriter records written paths and can fail on a given path
type mockImageWriter struct {
	written map[string]image.Rectangle
	order   []string
	failOn  string
}

func newMockImageWriter() *mockImageWriter {
	return &mockImageWriter{written: make(map[string]image.Rectangle)}
}

func (m *mockImageWriter) Write(path string, img image.Image) error {
	if path == m.failOn {
		return errors.New("permission denied")
	}
	m.written[path] = img.Bounds()
	m.order = append(m.order, path)
	return nil
}

// mockFragmentWriter renders into a buffer
type mockFragmentWriter struct {
	path  string
	body  bytes.Buffer
	calls int
	err   error
}

func (m *mockFragmentWriter) WriteFragment(path string, f *frames.Fragment) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.path = path
	m.body.Reset()
	_, err := f.WriteTo(&m.body)
	return err
}

type testHarness struct {
	source    *fakeSource
	opener    *mockOpener
	images    *mockImageWriter
	fragments *mockFragmentWriter
	output    *bytes.Buffer
}

func newHarness(src *fakeSource) *testHarness {
	return &testHarness{
		source:    src,
		opener:    &mockOpener{source: src},
		images:    newMockImageWriter(),
		fragments: &mockFragmentWriter{},
		output:    &bytes.Buffer{},
	}
}

func (h *testHarness) service(opts ...Option) *Service {
	return NewService(h.opener, boundsCropper{}, h.images, h.fragments, h.output, opts...)
}

func TestExport_MissingFrameIsReportedAndSkipped(t *testing.T) {
	h := newHarness(&fakeSource{fps: 1, count: 5, width: 64, height: 48})

	result, err := h.service().Export(context.Background(), Input{
		VideoPath:    "experiment.mp4",
		CaptureTimes: []float64{0, 1, 2, 6},
		OutputPrefix: "out/Image_",
	})
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}

	wantWritten := []string{"out/Image_0.jpg", "out/Image_1.jpg", "out/Image_2.jpg"}
	if len(result.Written) != len(wantWritten) {
		t.Fatalf("Written = %v, want %v", result.Written, wantWritten)
	}
	for i, p := range wantWritten {
		if result.Written[i] != p {
			t.Errorf("Written[%d] = %q, want %q", i, result.Written[i], p)
		}
	}
	if _, ok := h.images.written["out/Image_6.jpg"]; ok {
		t.Error("expected no image for 6 seconds")
	}
	if len(result.Missing) != 1 || result.Missing[0] != 6 {
		t.Errorf("Missing = %v, want [6]", result.Missing)
	}
	if result.DurationSeconds != 5 {
		t.Errorf("DurationSeconds = %d, want 5", result.DurationSeconds)
	}

	out := h.output.String()
	if !strings.HasPrefix(out, "Exporting frame from experiment.mp4\n") {
		t.Errorf("output should announce start, got %q", out)
	}
	if !strings.Contains(out, "No frame at 6 seconds. Video length is only 5 seconds long.") {
		t.Errorf("output should report the missing frame, got %q", out)
	}
	if !strings.HasSuffix(out, "Export complete\n") {
		t.Errorf("output should announce completion, got %q", out)
	}
	if h.source.closes != 1 {
		t.Errorf("source closed %d times, want 1", h.source.closes)
	}
	if h.fragments.calls != 0 {
		t.Errorf("fragment written %d times, want 0", h.fragments.calls)
	}
}

func TestExport_MissingFrameDoesNotStopLaterTimes(t *testing.T) {
	h := newHarness(&fakeSource{fps: 1, count: 5, width: 8, height: 8})

	result, err := h.service().Export(context.Background(), Input{
		CaptureTimes: []float64{9, 3},
		OutputPrefix: "p",
	})
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	if len(result.Written) != 1 || result.Written[0] != "p3.jpg" {
		t.Errorf("Written = %v, want [p3.jpg]", result.Written)
	}
}

func TestExport_FrameIndexPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy frames.IndexPolicy
		want   int
	}{
		{name: "default truncates", policy: "", want: 29},
		{name: "nearest rounds", policy: frames.IndexNearest, want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&fakeSource{fps: 30, count: 300, width: 8, height: 8})
			_, err := h.service(WithIndexPolicy(tt.policy)).Export(context.Background(), Input{
				CaptureTimes: []float64{0.99},
			})
			if err != nil {
				t.Fatalf("Export() unexpected error: %v", err)
			}
			if len(h.source.seeks) != 1 || h.source.seeks[0] != tt.want {
				t.Errorf("seeks = %v, want [%d]", h.source.seeks, tt.want)
			}
		})
	}
}

func TestExport_CropDimensions(t *testing.T) {
	tests := []struct {
		name  string
		crop  frames.Crop
		wantW int
		wantH int
	}{
		{name: "no crop", crop: frames.Crop{}, wantW: 100, wantH: 50},
		{name: "fractions", crop: frames.Crop{Top: 0.1, Left: 0.25, Bottom: 0.3, Right: 0.05}, wantW: 100 - 25 - 5, wantH: 50 - 5 - 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&fakeSource{fps: 1, count: 1, width: 100, height: 50})
			_, err := h.service().Export(context.Background(), Input{
				CaptureTimes: []float64{0},
				OutputPrefix: "c",
				Crop:         tt.crop,
			})
			if err != nil {
				t.Fatalf("Export() unexpected error: %v", err)
			}
			got := h.images.written["c0.jpg"]
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("image is %dx%d, want %dx%d", got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestExport_OpenFailure(t *testing.T) {
	h := newHarness(nil)
	h.opener.openErr = errors.New("no such file")

	_, err := h.service().Export(context.Background(), Input{
		VideoPath:    "missing.mp4",
		CaptureTimes: []float64{0},
		EmitFragment: true,
	})
	if !errors.Is(err, frames.ErrSourceOpen) {
		t.Fatalf("Export() error = %v, want ErrSourceOpen", err)
	}
	if len(h.images.order) != 0 {
		t.Errorf("expected no images, got %v", h.images.order)
	}
	if h.fragments.calls != 0 {
		t.Error("expected no fragment after open failure")
	}
	if strings.Contains(h.output.String(), "Export complete") {
		t.Error("expected no completion message after open failure")
	}
}

func TestExport_WriteFailureAbortsBatch(t *testing.T) {
	h := newHarness(&fakeSource{fps: 1, count: 10, width: 8, height: 8})
	h.images.failOn = "w1.jpg"

	result, err := h.service().Export(context.Background(), Input{
		CaptureTimes: []float64{0, 1, 2},
		OutputPrefix: "w",
		EmitFragment: true,
	})
	if !errors.Is(err, frames.ErrOutputWrite) {
		t.Fatalf("Export() error = %v, want ErrOutputWrite", err)
	}
	if len(h.images.order) != 1 || h.images.order[0] != "w0.jpg" {
		t.Errorf("written = %v, want only w0.jpg", h.images.order)
	}
	if result == nil || len(result.Written) != 1 {
		t.Errorf("result should keep the image written before the failure, got %+v", result)
	}
	if len(h.source.seeks) != 2 {
		t.Errorf("expected the batch to stop after the failure, seeks = %v", h.source.seeks)
	}
	if h.source.closes != 1 {
		t.Errorf("source closed %d times, want 1", h.source.closes)
	}
	if h.fragments.calls != 0 {
		t.Error("expected no fragment after a fatal write failure")
	}
}

func TestExport_DecodeErrorsAllMissing(t *testing.T) {
	h := newHarness(&fakeSource{fps: 25, count: 250, readErr: frames.ErrFrameDecode})

	result, err := h.service().Export(context.Background(), Input{CaptureTimes: []float64{1, 2}})
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	if len(result.Missing) != 2 {
		t.Errorf("Missing = %v, want two entries", result.Missing)
	}
	if h.source.closes != 1 {
		t.Errorf("source closed %d times, want 1", h.source.closes)
	}
	if got := strings.Count(h.output.String(), "Video length is only 10 seconds long."); got != 2 {
		t.Errorf("expected two diagnostics citing 10 seconds, got %d", got)
	}
}

func TestExport_Fragment(t *testing.T) {
	h := newHarness(&fakeSource{fps: 1, count: 30, width: 8, height: 8})

	result, err := h.service(WithFragmentPath("doc/figures.tex")).Export(context.Background(), Input{
		CaptureTimes:         []float64{0, 10, 20},
		OutputPrefix:         "pfx",
		EmitFragment:         true,
		FragmentRelativePath: "rel/",
		Columns:              3,
	})
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	if result.FragmentPath != "doc/figures.tex" || h.fragments.path != "doc/figures.tex" {
		t.Errorf("fragment path = %q / %q, want doc/figures.tex", result.FragmentPath, h.fragments.path)
	}

	body := h.fragments.body.String()
	if got := strings.Count(body, "\\begin{figure}[H]"); got != 1 {
		t.Errorf("expected one opening figure block, got %d", got)
	}
	if got := strings.Count(body, "\\end{figure}"); got != 1 {
		t.Errorf("expected one closing figure block, got %d", got)
	}
	if got := strings.Count(body, "\\begin{subfigure}"); got != 3 {
		t.Errorf("expected 3 subfigures, got %d", got)
	}

	last := -1
	for _, ts := range []string{"0", "10", "20"} {
		ref := "{rel/" + ts + "}\n\t\t\\caption{" + ts + " seconds}"
		idx := strings.Index(body, ref)
		if idx < 0 {
			t.Fatalf("fragment missing entry %q:\n%s", ref, body)
		}
		if idx < last {
			t.Errorf("entry %q out of order", ts)
		}
		last = idx
	}
}

func TestExport_FragmentPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy frames.FragmentPolicy
		want   int
	}{
		{name: "missing frames still referenced", policy: frames.FragmentAllTimes, want: 3},
		{name: "only extracted frames referenced", policy: frames.FragmentExtractedOnly, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&fakeSource{fps: 1, count: 5, width: 8, height: 8})
			_, err := h.service(WithFragmentPolicy(tt.policy)).Export(context.Background(), Input{
				CaptureTimes: []float64{0, 60, 1},
				EmitFragment: true,
			})
			if err != nil {
				t.Fatalf("Export() unexpected error: %v", err)
			}
			if got := strings.Count(h.fragments.body.String(), "\\begin{subfigure}"); got != tt.want {
				t.Errorf("got %d subfigures, want %d", got, tt.want)
			}
		})
	}
}

func TestExport_FragmentWriteFailure(t *testing.T) {
	h := newHarness(&fakeSource{fps: 1, count: 5, width: 8, height: 8})
	h.fragments.err = errors.New("read-only file system")

	_, err := h.service().Export(context.Background(), Input{
		CaptureTimes: []float64{0},
		EmitFragment: true,
	})
	if !errors.Is(err, frames.ErrOutputWrite) {
		t.Fatalf("Export() error = %v, want ErrOutputWrite", err)
	}
	if h.source.closes != 1 {
		t.Errorf("source closed %d times, want 1", h.source.closes)
	}
}

func TestProbe(t *testing.T) {
	src := &fakeSource{fps: 29.97, count: 1798}
	p := NewProbeService(&mockOpener{source: src})

	got, err := p.Probe(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Probe() unexpected error: %v", err)
	}
	if got.FrameRate != 29.97 || got.FrameCount != 1798 || got.DurationSeconds != 59 {
		t.Errorf("Probe() = %+v", got)
	}
	if src.closes != 1 {
		t.Errorf("source closed %d times, want 1", src.closes)
	}

	_, err = NewProbeService(&mockOpener{openErr: errors.New("bad")}).Probe(context.Background(), "x")
	if !errors.Is(err, frames.ErrSourceOpen) {
		t.Errorf("Probe() error = %v, want ErrSourceOpen", err)
	}
}
