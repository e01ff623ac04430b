package config

import (
	"fmt"
	"os"

	"video-stills/domain/frames"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the configuration file
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Export   ExportConfig   `yaml:"export"`
	Crop     frames.Crop    `yaml:"crop"`
	Fragment FragmentConfig `yaml:"fragment"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PathsConfig contains directories used to resolve inputs and outputs
type PathsConfig struct {
	VideoDirectory  string `yaml:"video_directory"`
	OutputDirectory string `yaml:"output_directory"`
}

// ExportConfig contains frame extraction settings
type ExportConfig struct {
	ImagePrefix string `yaml:"image_prefix"`
	Quality     int    `yaml:"quality"`
	Backend     string `yaml:"backend"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	IndexPolicy string `yaml:"index_policy"`
}

// FragmentConfig contains LaTeX fragment settings
type FragmentConfig struct {
	Enabled      bool   `yaml:"enabled"`
	File         string `yaml:"file"`
	RelativePath string `yaml:"relative_path"`
	Columns      int    `yaml:"columns"`
	Policy       string `yaml:"policy"`
}

// LoggingConfig contains structured logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			ImagePrefix: "Image_",
			Quality:     95,
			Backend:     "auto",
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			IndexPolicy: string(frames.IndexTruncate),
		},
		Fragment: FragmentConfig{
			File:    frames.DefaultFragmentFile,
			Columns: frames.DefaultColumns,
			Policy:  string(frames.FragmentAllTimes),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration from the specified YAML file.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
