package cmd

import (
	"context"
	"fmt"
	"os"

	appexport "video-stills/application/export"
	"video-stills/domain/frames"
	"video-stills/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var (
	probeVideo   string
	probeBackend string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show frame rate, frame count and duration of a video",
	Long: `Open a video with the selected decoding backend and report what it sees.

The duration shown is the one used in "No frame at ..." messages during export,
so probing first tells you which capture times are in range.

Example:
  video-stills probe --video run3.mp4
  video-stills probe --video clip.mpg --backend mpeg`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVar(&probeVideo, "video", "", "Path to video file (required)")
	probeCmd.Flags().StringVar(&probeBackend, "backend", "", "Decoder: auto, ffmpeg, mpeg or opencv")
	probeCmd.MarkFlagRequired("video")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	videoPath := resolveVideoPath(filesystem.NewChecker(), cfg.Paths.VideoDirectory, probeVideo)

	backend := cfg.Export.Backend
	if cmd.Flags().Changed("backend") {
		backend = probeBackend
	}

	router, err := newSourceRouter(cmd.Context(), cfg, backend, videoPath)
	if err != nil {
		return err
	}

	return RunProbeWithDependencies(cmd.Context(), router, string(router.Select(videoPath)), videoPath, os.Stdout)
}

// RunProbeWithDependencies runs the probe command with injected dependencies (for testing)
func RunProbeWithDependencies(
	ctx context.Context,
	opener frames.VideoOpener,
	backend string,
	videoPath string,
	output OutputWriter,
) error {
	result, err := appexport.NewProbeService(opener).Probe(ctx, videoPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Video:       %s\n", videoPath)
	if backend != "" {
		fmt.Fprintf(output, "Backend:     %s\n", backend)
	}
	fmt.Fprintf(output, "Frame rate:  %g fps\n", result.FrameRate)
	fmt.Fprintf(output, "Frame count: %d\n", result.FrameCount)
	fmt.Fprintf(output, "Duration:    %d seconds\n", result.DurationSeconds)
	return nil
}
