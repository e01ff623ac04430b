package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"video-stills/infrastructure/config"
	"video-stills/infrastructure/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logPretty bool
	cfg       *config.Config
	cfgErr    error
)

var rootCmd = &cobra.Command{
	Use:   "video-stills",
	Short: "Extract still frames from a video for use in documents",
	Long: `video-stills pulls still images out of a video recording at chosen
timestamps, for use as figures:

  - Extract one JPEG per timestamp
  - Crop a fraction off any edge of each frame
  - Write a LaTeX figure with one subfigure per image

Example:
  video-stills export --video experiment.mp4 --times 0,10,20 --latex`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if !cmd.Flags().Changed("log-level") && cfg != nil {
			level = cfg.Logging.Level
		}
		pretty := logPretty || (cfg != nil && cfg.Logging.Pretty)
		logging.Init(level, pretty)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "human-readable log output")
}

func initConfig() {
	explicit := cfgFile != ""
	if !explicit {
		cfgFile = config.DefaultPath
	}

	cfg, cfgErr = config.Load(cfgFile)
	if cfgErr != nil && !explicit && errors.Is(cfgErr, fs.ErrNotExist) {
		// The default config file is optional; built-in defaults apply
		cfg, cfgErr = config.Default(), nil
	}
}

// GetConfig returns the loaded configuration, or the error that prevented loading it
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("configuration %s: %w", cfgFile, cfgErr)
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}
