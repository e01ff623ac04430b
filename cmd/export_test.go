package cmd

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"video-stills/domain/frames"
	"video-stills/infrastructure/config"

	"github.com/spf13/cobra"
)

func parseExportFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "export"}
	bindExportFlags(c)
	if err := c.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) unexpected error: %v", args, err)
	}
	return c
}

func TestExportOptionsFromConfig_ConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDirectory = "figures"
	cfg.Crop = frames.Crop{Bottom: 0.2}
	cfg.Fragment.Enabled = true
	cfg.Fragment.RelativePath = "../05_Figures/"

	c := parseExportFlags(t, "--video", "run.mp4", "--times", "0,10")
	opts := exportOptionsFromConfig(c, cfg)

	if opts.VideoPath != "run.mp4" {
		t.Errorf("VideoPath = %q", opts.VideoPath)
	}
	if strings.Join(opts.CaptureTimes, "|") != "0|10" {
		t.Errorf("CaptureTimes = %v", opts.CaptureTimes)
	}
	if opts.OutputDir != "figures" || opts.Prefix != "Image_" || opts.Quality != 95 {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.Crop != (frames.Crop{Bottom: 0.2}) {
		t.Errorf("Crop = %+v, want config crop", opts.Crop)
	}
	if !opts.Latex || opts.LatexPath != "../05_Figures/" || opts.Columns != 3 {
		t.Errorf("fragment settings = %+v", opts)
	}
	if opts.FragmentPolicy != frames.FragmentAllTimes {
		t.Errorf("FragmentPolicy = %q, want %q", opts.FragmentPolicy, frames.FragmentAllTimes)
	}
}

func TestExportOptionsFromConfig_FlagsOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Crop = frames.Crop{Top: 0.1, Bottom: 0.2}
	cfg.Fragment.Enabled = true

	c := parseExportFlags(t,
		"--video", "run.mp4",
		"--times", "1",
		"--prefix", "Run_",
		"--output-dir", "out",
		"--crop-bottom", "0.3",
		"--latex=false",
		"--columns", "4",
		"--index-policy", "nearest",
		"--skip-missing-in-fragment",
		"--quality", "80",
	)
	opts := exportOptionsFromConfig(c, cfg)

	if opts.Prefix != "Run_" || opts.OutputDir != "out" || opts.Quality != 80 {
		t.Errorf("flags not applied: %+v", opts)
	}
	// only the changed crop edge is overridden
	if opts.Crop != (frames.Crop{Top: 0.1, Bottom: 0.3}) {
		t.Errorf("Crop = %+v", opts.Crop)
	}
	if opts.Latex {
		t.Error("--latex=false should disable the fragment")
	}
	if opts.Columns != 4 || opts.IndexPolicy != "nearest" {
		t.Errorf("Columns = %d, IndexPolicy = %q", opts.Columns, opts.IndexPolicy)
	}
	if opts.FragmentPolicy != frames.FragmentExtractedOnly {
		t.Errorf("FragmentPolicy = %q, want %q", opts.FragmentPolicy, frames.FragmentExtractedOnly)
	}
}

type stubChecker map[string]bool

func (s stubChecker) Exists(path string) bool { return s[path] }

func TestResolveVideoPath(t *testing.T) {
	inDir := filepath.Join("videos", "run.mp4")
	tests := []struct {
		name     string
		existing stubChecker
		videoDir string
		path     string
		want     string
	}{
		{"exists as given", stubChecker{"run.mp4": true, inDir: true}, "videos", "run.mp4", "run.mp4"},
		{"found in video directory", stubChecker{inDir: true}, "videos", "run.mp4", inDir},
		{"not found anywhere", stubChecker{}, "videos", "run.mp4", "run.mp4"},
		{"no video directory", stubChecker{}, "", "run.mp4", "run.mp4"},
		{"absolute path untouched", stubChecker{}, "videos", "/abs/run.mp4", "/abs/run.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveVideoPath(tt.existing, tt.videoDir, tt.path); got != tt.want {
				t.Errorf("resolveVideoPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImagePrefix(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		name      string
		outputDir string
		prefix    string
		want      string
	}{
		{"no directory", "", "Image_", "Image_"},
		{"directory and prefix", "figures", "Image_", filepath.Join("figures", "Image_")},
		{"empty prefix keeps separator", "figures", "", "figures" + sep},
		{"directory already ends in separator", "figures" + sep, "", "figures" + sep},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imagePrefix(tt.outputDir, tt.prefix); got != tt.want {
				t.Errorf("imagePrefix(%q, %q) = %q, want %q", tt.outputDir, tt.prefix, got, tt.want)
			}
		})
	}

	if got, want := frames.ImagePath(imagePrefix("figures", ""), 0), filepath.Join("figures", "0.jpg"); got != want {
		t.Errorf("image path with empty prefix = %q, want %q", got, want)
	}
}

func TestExportOptionsFromConfig_SkipMissingFlag(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
		want   frames.FragmentPolicy
	}{
		{"config extracted, flag unset", "extracted", nil, frames.FragmentExtractedOnly},
		{"config extracted, flag false", "extracted", []string{"--skip-missing-in-fragment=false"}, frames.FragmentAllTimes},
		{"config all, flag true", "all", []string{"--skip-missing-in-fragment"}, frames.FragmentExtractedOnly},
		{"config all, flag unset", "all", nil, frames.FragmentAllTimes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Fragment.Policy = tt.config

			c := parseExportFlags(t, tt.args...)
			if got := exportOptionsFromConfig(c, cfg).FragmentPolicy; got != tt.want {
				t.Errorf("FragmentPolicy = %q, want %q", got, tt.want)
			}
		})
	}
}

// stillVideo is a fixed-length video of blank frames
type stillVideo struct {
	fps   float64
	count int
	pos   int
}

func (v *stillVideo) FrameRate() float64 { return v.fps }
func (v *stillVideo) FrameCount() int    { return v.count }
func (v *stillVideo) Close() error       { return nil }

func (v *stillVideo) Seek(index int) error {
	v.pos = index
	return nil
}

func (v *stillVideo) ReadFrame() (image.Image, error) {
	if v.pos >= v.count {
		return nil, frames.ErrFrameDecode
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

type stillOpener struct {
	video *stillVideo
	err   error
}

func (o *stillOpener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.video, nil
}

type passCropper struct{}

func (passCropper) Crop(img image.Image, crop frames.Crop) image.Image { return img }

type recordingImages struct {
	paths []string
}

func (r *recordingImages) Write(path string, img image.Image) error {
	r.paths = append(r.paths, path)
	return nil
}

type recordingFragments struct {
	path string
	body bytes.Buffer
}

func (r *recordingFragments) WriteFragment(path string, f *frames.Fragment) error {
	r.path = path
	_, err := f.WriteTo(&r.body)
	return err
}

func TestRunExportWithDependencies(t *testing.T) {
	images := &recordingImages{}
	fragments := &recordingFragments{}
	var out bytes.Buffer

	opts := ExportOptions{
		VideoPath:    "run.mp4",
		CaptureTimes: []string{"0", "00:00:01.5", "9"},
		OutputDir:    "figures",
		Prefix:       "Image_",
		Latex:        true,
		LatexPath:    "../05_Figures/",
		Columns:      3,
		FragmentFile: "figures.tex",
	}

	err := RunExportWithDependencies(context.Background(), &stillOpener{video: &stillVideo{fps: 2, count: 10}},
		passCropper{}, images, fragments, opts, &out)
	if err != nil {
		t.Fatalf("RunExportWithDependencies() unexpected error: %v", err)
	}

	want := []string{
		filepath.Join("figures", "Image_0.jpg"),
		filepath.Join("figures", "Image_1.5.jpg"),
	}
	if strings.Join(images.paths, "|") != strings.Join(want, "|") {
		t.Errorf("written = %v, want %v", images.paths, want)
	}
	if !strings.Contains(out.String(), "No frame at 9 seconds. Video length is only 5 seconds long.") {
		t.Errorf("missing frame message not printed:\n%s", out.String())
	}
	if fragments.path != "figures.tex" {
		t.Errorf("fragment path = %q", fragments.path)
	}
	if !strings.Contains(fragments.body.String(), "{../05_Figures/Image_1.5}") {
		t.Errorf("fragment does not reference latex path + prefix:\n%s", fragments.body.String())
	}
}

func TestRunExportWithDependencies_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opener  *stillOpener
		opts    ExportOptions
		wantErr error
	}{
		{
			name:    "invalid time",
			opener:  &stillOpener{video: &stillVideo{fps: 1, count: 5}},
			opts:    ExportOptions{CaptureTimes: []string{"soon"}},
			wantErr: frames.ErrInvalidCaptureTime,
		},
		{
			name:    "open failure",
			opener:  &stillOpener{err: errors.New("no such file")},
			opts:    ExportOptions{CaptureTimes: []string{"1"}},
			wantErr: frames.ErrSourceOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunExportWithDependencies(context.Background(), tt.opener, passCropper{},
				&recordingImages{}, &recordingFragments{}, tt.opts, &out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("no times", func(t *testing.T) {
		err := RunExportWithDependencies(context.Background(), &stillOpener{}, passCropper{},
			&recordingImages{}, &recordingFragments{}, ExportOptions{}, &bytes.Buffer{})
		if err == nil {
			t.Error("expected an error for an empty capture list")
		}
	})

	t.Run("unknown index policy", func(t *testing.T) {
		opts := ExportOptions{CaptureTimes: []string{"1"}, IndexPolicy: "floor"}
		err := RunExportWithDependencies(context.Background(), &stillOpener{}, passCropper{},
			&recordingImages{}, &recordingFragments{}, opts, &bytes.Buffer{})
		if err == nil {
			t.Error("expected an error for an unknown index policy")
		}
	})
}

func TestRunProbeWithDependencies(t *testing.T) {
	var out bytes.Buffer
	err := RunProbeWithDependencies(context.Background(), &stillOpener{video: &stillVideo{fps: 29.97, count: 300}},
		"ffmpeg", "run.mp4", &out)
	if err != nil {
		t.Fatalf("RunProbeWithDependencies() unexpected error: %v", err)
	}

	for _, want := range []string{"run.mp4", "Backend:     ffmpeg", "29.97 fps", "Frame count: 300", "Duration:    10 seconds"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	err = RunProbeWithDependencies(context.Background(), &stillOpener{err: errors.New("boom")}, "", "x.mp4", &out)
	if !errors.Is(err, frames.ErrSourceOpen) {
		t.Errorf("error = %v, want ErrSourceOpen", err)
	}
}

func TestRunConfigSetAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	cfg := config.Default()
	var out bytes.Buffer

	if err := RunConfigSetWithDependencies(cfg, path, "fragment.columns", "4", &out); err != nil {
		t.Fatalf("set unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Set fragment.columns = 4") {
		t.Errorf("set output = %q", out.String())
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if loaded.Fragment.Columns != 4 {
		t.Errorf("saved columns = %d, want 4", loaded.Fragment.Columns)
	}

	out.Reset()
	if err := RunConfigListWithDependencies(loaded, path, &out); err != nil {
		t.Fatalf("list unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "fragment.columns") || !strings.Contains(out.String(), "KEY") {
		t.Errorf("list output missing entries:\n%s", out.String())
	}

	out.Reset()
	if err := RunConfigUnsetWithDependencies(loaded, path, "fragment.columns", &out); err != nil {
		t.Fatalf("unset unexpected error: %v", err)
	}
	if loaded.Fragment.Columns != frames.DefaultColumns {
		t.Errorf("columns after unset = %d", loaded.Fragment.Columns)
	}
}
