package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"video-stills/domain/frames"
	"video-stills/infrastructure/config"
	"video-stills/infrastructure/source"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up your configuration file
with video and output directories, export defaults and LaTeX figure settings.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, configPath())
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	fmt.Println("Welcome to video-stills setup!")
	fmt.Println()

	cfg := config.Default()

	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}

	if err := promptExport(prompter, cfg); err != nil {
		return err
	}

	if err := promptFragment(prompter, cfg); err != nil {
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Save configuration
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	videos, err := prompter.Input("Where are your videos stored? (blank for current directory)", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Paths.VideoDirectory = videos

	output, err := prompter.Input("Where should extracted images go? (blank for current directory)", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Paths.OutputDirectory = output

	return nil
}

func promptExport(prompter Prompter, cfg *config.Config) error {
	prefix, err := prompter.Input("Image file name prefix?", cfg.Export.ImagePrefix)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if prefix != "" {
		cfg.Export.ImagePrefix = prefix
	}

	backend, err := prompter.Input("Decoding backend (auto, ffmpeg, mpeg, opencv)?", cfg.Export.Backend)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if backend != "" {
		if _, err := source.ParseBackend(backend); err != nil {
			return err
		}
		cfg.Export.Backend = backend
	}

	return nil
}

func promptFragment(prompter Prompter, cfg *config.Config) error {
	enabled, err := prompter.Confirm("Write a LaTeX figure by default?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Fragment.Enabled = enabled
	if !enabled {
		return nil
	}

	relPath, err := prompter.Input("Path from the LaTeX document to the images?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Fragment.RelativePath = relPath

	columns, err := prompter.Input("Subfigures per row?", strconv.Itoa(frames.DefaultColumns))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if columns != "" {
		n, err := strconv.Atoi(columns)
		if err != nil || n < 1 {
			return fmt.Errorf("columns must be a positive whole number, got %q", columns)
		}
		cfg.Fragment.Columns = n
	}

	return nil
}
