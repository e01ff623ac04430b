package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"video-stills/infrastructure/config"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput OutputWriter = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration settings",
	Long: `Show and change individual settings in the configuration file.

Keys are section.name as they appear in config.yaml.

Examples:
  video-stills config list
  video-stills config set export.image_prefix Run3_
  video-stills config set crop.bottom 0.15
  video-stills config unset crop.bottom`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	// Add subcommands
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// configPath is the file config subcommands write to
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath
}

// --- LIST command ---

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings with their effective values",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	return RunConfigListWithDependencies(cfg, configPath(), DefaultOutput)
}

// RunConfigListWithDependencies runs the list command with injected dependencies
func RunConfigListWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "KEY\tVALUE")
	for _, s := range mgr.List() {
		fmt.Fprintf(w, "%s\t%s\n", s.Key, s.Value)
	}

	return w.Flush()
}

// --- SET command ---

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting and save the configuration file.

Examples:
  video-stills config set paths.video_directory /data/recordings
  video-stills config set fragment.columns 4
  video-stills config set export.backend mpeg`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	return RunConfigSetWithDependencies(cfg, configPath(), args[0], args[1], DefaultOutput)
}

// RunConfigSetWithDependencies runs the set command with injected dependencies
func RunConfigSetWithDependencies(cfg *config.Config, configPath, key, value string, out OutputWriter) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.Set(key, value); err != nil {
		return err
	}

	current, err := mgr.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Set %s = %s\n", key, current)
	return nil
}

// --- UNSET command ---

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	return RunConfigUnsetWithDependencies(cfg, configPath(), args[0], DefaultOutput)
}

// RunConfigUnsetWithDependencies runs the unset command with injected dependencies
func RunConfigUnsetWithDependencies(cfg *config.Config, configPath, key string, out OutputWriter) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.Unset(key); err != nil {
		return err
	}

	current, err := mgr.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Reset %s to %q\n", key, current)
	return nil
}
