package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"video-stills/domain/frames"
)

// Errors for config management
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// ConfigManager reads and updates individual settings by dotted key
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Setting is one key/value pair as stored in the YAML file
type Setting struct {
	Key   string
	Value string
}

type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(ptr func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func oneOfField(ptr func(c *Config) *string, allowed ...string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			for _, a := range allowed {
				if v == a {
					*ptr(c) = v
					return nil
				}
			}
			return fmt.Errorf("%w: %q, expected one of %s", ErrInvalidValue, v, strings.Join(allowed, ", "))
		},
	}
}

func intField(ptr func(c *Config) *int, min, max int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < min || n > max {
				return fmt.Errorf("%w: %q, expected a whole number from %d to %d", ErrInvalidValue, v, min, max)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func fractionField(ptr func(c *Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*ptr(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
			}
			*ptr(c) = f
			return nil
		},
	}
}

func boolField(ptr func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %q, expected true or false", ErrInvalidValue, v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

var fields = map[string]field{
	"paths.video_directory":  stringField(func(c *Config) *string { return &c.Paths.VideoDirectory }),
	"paths.output_directory": stringField(func(c *Config) *string { return &c.Paths.OutputDirectory }),
	"export.image_prefix":    stringField(func(c *Config) *string { return &c.Export.ImagePrefix }),
	"export.quality":         intField(func(c *Config) *int { return &c.Export.Quality }, 1, 100),
	"export.backend":         oneOfField(func(c *Config) *string { return &c.Export.Backend }, "auto", "ffmpeg", "mpeg", "opencv"),
	"export.ffmpeg_path":     stringField(func(c *Config) *string { return &c.Export.FFmpegPath }),
	"export.ffprobe_path":    stringField(func(c *Config) *string { return &c.Export.FFprobePath }),
	"export.index_policy":    oneOfField(func(c *Config) *string { return &c.Export.IndexPolicy }, string(frames.IndexTruncate), string(frames.IndexNearest)),
	"crop.top":               fractionField(func(c *Config) *float64 { return &c.Crop.Top }),
	"crop.left":              fractionField(func(c *Config) *float64 { return &c.Crop.Left }),
	"crop.bottom":            fractionField(func(c *Config) *float64 { return &c.Crop.Bottom }),
	"crop.right":             fractionField(func(c *Config) *float64 { return &c.Crop.Right }),
	"fragment.enabled":       boolField(func(c *Config) *bool { return &c.Fragment.Enabled }),
	"fragment.file":          stringField(func(c *Config) *string { return &c.Fragment.File }),
	"fragment.relative_path": stringField(func(c *Config) *string { return &c.Fragment.RelativePath }),
	"fragment.columns":       intField(func(c *Config) *int { return &c.Fragment.Columns }, 1, 100),
	"fragment.policy":        oneOfField(func(c *Config) *string { return &c.Fragment.Policy }, string(frames.FragmentAllTimes), string(frames.FragmentExtractedOnly)),
	"logging.level":          oneOfField(func(c *Config) *string { return &c.Logging.Level }, "debug", "info", "warn", "error"),
	"logging.pretty":         boolField(func(c *Config) *bool { return &c.Logging.Pretty }),
}

func lookup(key string) (field, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	f, ok := fields[key]
	if !ok {
		return field{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f, nil
}

// List returns every setting sorted by key
func (m *ConfigManager) List() []Setting {
	result := make([]Setting, 0, len(fields))
	for key, f := range fields {
		result = append(result, Setting{Key: key, Value: f.get(m.config)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Get returns the current value of a setting
func (m *ConfigManager) Get(key string) (string, error) {
	f, err := lookup(key)
	if err != nil {
		return "", err
	}
	return f.get(m.config), nil
}

// Set validates and stores a value, then saves the file
func (m *ConfigManager) Set(key, value string) error {
	f, err := lookup(key)
	if err != nil {
		return err
	}
	if err := f.set(m.config, value); err != nil {
		return err
	}
	return Save(m.config, m.configPath)
}

// Unset restores a setting to its built-in default, then saves the file
func (m *ConfigManager) Unset(key string) error {
	f, err := lookup(key)
	if err != nil {
		return err
	}
	if err := f.set(m.config, f.get(Default())); err != nil {
		return err
	}
	return Save(m.config, m.configPath)
}
