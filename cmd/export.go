package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appexport "video-stills/application/export"
	"video-stills/domain/frames"
	"video-stills/infrastructure/config"
	"video-stills/infrastructure/filesystem"
	"video-stills/infrastructure/imagefile"
	"video-stills/infrastructure/logging"

	"github.com/spf13/cobra"
)

var (
	exportVideo        string
	exportTimes        []string
	exportPrefix       string
	exportOutputDir    string
	exportCrop         frames.Crop
	exportLatex        bool
	exportLatexPath    string
	exportColumns      int
	exportFragmentFile string
	exportBackend      string
	exportIndexPolicy  string
	exportSkipMissing  bool
	exportQuality      int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Extract still frames at the given times",
	Long: `Extract one JPEG per capture time from a video.

Times are seconds ("12.5") or HH:MM:SS ("00:01:30"), comma separated or
repeated. Each image is written to <output-dir>/<prefix><seconds>.jpg.
A time past the end of the video is reported and skipped.

With --latex a figure with one subfigure per time is written to the fragment
file (figures.tex by default). Each subfigure references <latex-path><prefix><seconds>.

If --video is not found as given, it is resolved from the configured video_directory.

Example:
  video-stills export --video run3.mp4 --times 0,10,20,30 --output-dir figures
  video-stills export --video run3.mp4 --times 5,15 --crop-top 0.1 --crop-bottom 0.2 --latex --latex-path ../05_Figures/`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	bindExportFlags(exportCmd)
	exportCmd.MarkFlagRequired("video")
	exportCmd.MarkFlagRequired("times")
}

func bindExportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&exportVideo, "video", "", "Path to video file (required)")
	f.StringSliceVar(&exportTimes, "times", nil, "Capture times in seconds or HH:MM:SS (required)")
	f.StringVar(&exportPrefix, "prefix", "", "Image file name prefix (default from config or Image_)")
	f.StringVar(&exportOutputDir, "output-dir", "", "Directory for images (default from config or current directory)")
	f.Float64Var(&exportCrop.Top, "crop-top", 0, "Fraction of the height to crop from the top")
	f.Float64Var(&exportCrop.Left, "crop-left", 0, "Fraction of the width to crop from the left")
	f.Float64Var(&exportCrop.Bottom, "crop-bottom", 0, "Fraction of the height to crop from the bottom")
	f.Float64Var(&exportCrop.Right, "crop-right", 0, "Fraction of the width to crop from the right")
	f.BoolVar(&exportLatex, "latex", false, "Write a LaTeX figure referencing the images")
	f.StringVar(&exportLatexPath, "latex-path", "", "Path from the LaTeX document to the images")
	f.IntVar(&exportColumns, "columns", frames.DefaultColumns, "Subfigures per row, used to size each subfigure")
	f.StringVar(&exportFragmentFile, "fragment-file", "", "LaTeX fragment output file (default figures.tex)")
	f.StringVar(&exportBackend, "backend", "", "Decoder: auto, ffmpeg, mpeg or opencv")
	f.StringVar(&exportIndexPolicy, "index-policy", "", "Time to frame conversion: truncate or nearest")
	f.BoolVar(&exportSkipMissing, "skip-missing-in-fragment", false, "Leave frames that could not be extracted out of the figure")
	f.IntVar(&exportQuality, "quality", 0, "JPEG quality 1-100 (default from config or 95)")
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// ExportOptions holds the fully resolved settings for one export run
type ExportOptions struct {
	VideoPath      string
	CaptureTimes   []string
	OutputDir      string
	Prefix         string
	Crop           frames.Crop
	Latex          bool
	LatexPath      string
	Columns        int
	FragmentFile   string
	IndexPolicy    string
	FragmentPolicy frames.FragmentPolicy
	Quality        int
	VideoDirectory string
}

// exportOptionsFromConfig starts from config values and applies changed flags
func exportOptionsFromConfig(cmd *cobra.Command, cfg *config.Config) ExportOptions {
	flags := cmd.Flags()
	opts := ExportOptions{
		VideoPath:      exportVideo,
		CaptureTimes:   exportTimes,
		OutputDir:      cfg.Paths.OutputDirectory,
		Prefix:         cfg.Export.ImagePrefix,
		Crop:           cfg.Crop,
		Latex:          cfg.Fragment.Enabled,
		LatexPath:      cfg.Fragment.RelativePath,
		Columns:        cfg.Fragment.Columns,
		FragmentFile:   cfg.Fragment.File,
		IndexPolicy:    cfg.Export.IndexPolicy,
		FragmentPolicy: frames.FragmentPolicy(cfg.Fragment.Policy),
		Quality:        cfg.Export.Quality,
		VideoDirectory: cfg.Paths.VideoDirectory,
	}

	if flags.Changed("prefix") {
		opts.Prefix = exportPrefix
	}
	if flags.Changed("output-dir") {
		opts.OutputDir = exportOutputDir
	}
	if flags.Changed("crop-top") {
		opts.Crop.Top = exportCrop.Top
	}
	if flags.Changed("crop-left") {
		opts.Crop.Left = exportCrop.Left
	}
	if flags.Changed("crop-bottom") {
		opts.Crop.Bottom = exportCrop.Bottom
	}
	if flags.Changed("crop-right") {
		opts.Crop.Right = exportCrop.Right
	}
	if flags.Changed("latex") {
		opts.Latex = exportLatex
	}
	if flags.Changed("latex-path") {
		opts.LatexPath = exportLatexPath
	}
	if flags.Changed("columns") {
		opts.Columns = exportColumns
	}
	if flags.Changed("fragment-file") {
		opts.FragmentFile = exportFragmentFile
	}
	if flags.Changed("index-policy") {
		opts.IndexPolicy = exportIndexPolicy
	}
	if flags.Changed("skip-missing-in-fragment") {
		opts.FragmentPolicy = frames.FragmentAllTimes
		if exportSkipMissing {
			opts.FragmentPolicy = frames.FragmentExtractedOnly
		}
	}
	if flags.Changed("quality") {
		opts.Quality = exportQuality
	}
	return opts
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	opts := exportOptionsFromConfig(cmd, cfg)
	fileChecker := filesystem.NewChecker()
	opts.VideoPath = resolveVideoPath(fileChecker, opts.VideoDirectory, opts.VideoPath)

	backend := cfg.Export.Backend
	if cmd.Flags().Changed("backend") {
		backend = exportBackend
	}

	// Create dependencies using production implementations
	router, err := newSourceRouter(cmd.Context(), cfg, backend, opts.VideoPath)
	if err != nil {
		return err
	}

	return RunExportWithDependencies(
		cmd.Context(),
		router,
		imagefile.NewCropper(),
		imagefile.NewWriter(imagefile.WithQuality(opts.Quality)),
		filesystem.NewFragmentFile(),
		opts,
		os.Stdout,
	)
}

// resolveVideoPath falls back to the configured video directory for relative
// paths that do not exist as given
func resolveVideoPath(checker frames.FileChecker, videoDir, path string) string {
	if filepath.IsAbs(path) || videoDir == "" || checker.Exists(path) {
		return path
	}
	candidate := filepath.Join(videoDir, path)
	if checker.Exists(candidate) {
		return candidate
	}
	return path
}

// imagePrefix joins the output directory and file name prefix. With an empty
// prefix the result ends in a separator so names land inside the directory.
func imagePrefix(outputDir, prefix string) string {
	if outputDir == "" {
		return prefix
	}
	joined := filepath.Join(outputDir, prefix)
	if prefix == "" && !strings.HasSuffix(joined, string(filepath.Separator)) {
		joined += string(filepath.Separator)
	}
	return joined
}

// RunExportWithDependencies runs the export command with injected dependencies (for testing)
func RunExportWithDependencies(
	ctx context.Context,
	opener frames.VideoOpener,
	cropper frames.Cropper,
	images frames.ImageWriter,
	fragments frames.FragmentWriter,
	opts ExportOptions,
	output OutputWriter,
) error {
	req, err := frames.NewCaptureRequest(opts.CaptureTimes)
	if err != nil {
		return err
	}
	if len(req.Times) == 0 {
		return fmt.Errorf("at least one capture time is required")
	}

	policy, err := frames.ParseIndexPolicy(opts.IndexPolicy)
	if err != nil {
		return err
	}

	service := appexport.NewService(opener, cropper, images, fragments, output,
		appexport.WithLogger(logging.WithComponent("export")),
		appexport.WithFragmentPath(opts.FragmentFile),
		appexport.WithIndexPolicy(policy),
		appexport.WithFragmentPolicy(opts.FragmentPolicy),
	)

	input := appexport.Input{
		VideoPath:            opts.VideoPath,
		CaptureTimes:         req.Times,
		OutputPrefix:         imagePrefix(opts.OutputDir, opts.Prefix),
		Crop:                 opts.Crop,
		EmitFragment:         opts.Latex,
		FragmentRelativePath: opts.LatexPath + opts.Prefix,
		Columns:              opts.Columns,
	}

	_, err = service.Export(ctx, input)
	return err
}
