//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"video-stills/cmd"
	"video-stills/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	inputIndex       int
	confirmIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		// Create temp directory for each scenario
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.setupCancelled = false
		testCtx.originalContent = ""
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		// Cleanup temp directory
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedSetupContext = &setupContext{}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with inputs:$`, testCtx.iRunTheSetupCommandWithInputs)
	ctx.Step(`^I attempt to run the setup command with inputs:$`, testCtx.iAttemptToRunTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, testCtx.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)" and inputs:$`, testCtx.iRunTheSetupCommandWithConfirmationAndInputs)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^the config should have video_directory "([^"]*)"$`, testCtx.theConfigShouldHaveVideoDirectory)
	ctx.Step(`^the config should have output_directory "([^"]*)"$`, testCtx.theConfigShouldHaveOutputDirectory)
	ctx.Step(`^the config should have image_prefix "([^"]*)"$`, testCtx.theConfigShouldHaveImagePrefix)
	ctx.Step(`^the config should have backend "([^"]*)"$`, testCtx.theConfigShouldHaveBackend)
	ctx.Step(`^the config should have LaTeX output (enabled|disabled)$`, testCtx.theConfigShouldHaveLatexOutput)
	ctx.Step(`^the config should have (\d+) fragment columns$`, testCtx.theConfigShouldHaveFragmentColumns)
	ctx.Step(`^the setup should fail with "([^"]*)"$`, testCtx.theSetupShouldFailWith)
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	// Just ensure the config path directory exists but no config file
	configDir := filepath.Dir(s.configPath)
	return os.MkdirAll(configDir, 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	// Create the config file with some content
	configDir := filepath.Dir(s.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	content := `paths:
  video_directory: "/original/videos"
  output_directory: "/original/figures"
export:
  image_prefix: "Original_"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms := parseInputTable(table)
	prompter := NewMockPrompter(inputs, confirms)

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func (s *setupContext) iAttemptToRunTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms := parseInputTable(table)
	s.err = cmd.RunSetupWithPrompter(NewMockPrompter(inputs, confirms), s.configPath)
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := NewMockPrompter([]string{}, []bool{confirm})

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	if !confirm {
		s.setupCancelled = true
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmationAndInputs(confirmation string, table *godog.Table) error {
	confirm := strings.ToLower(confirmation) == "y"
	inputs, confirms := parseInputTable(table)

	// Prepend the overwrite confirmation
	allConfirms := append([]bool{confirm}, confirms...)
	prompter := NewMockPrompter(inputs, allConfirms)

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func parseInputTable(table *godog.Table) ([]string, []bool) {
	var inputs []string
	var confirms []bool

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		prompt := strings.ToLower(row.Cells[0].Value)
		value := row.Cells[1].Value

		// Check if this is a confirm prompt (starts with "Write")
		if strings.HasPrefix(prompt, "write") {
			confirms = append(confirms, strings.ToLower(value) == "y")
		} else {
			inputs = append(inputs, value)
		}
	}

	return inputs, confirms
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) loadSavedConfig() (*config.Config, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *setupContext) theConfigShouldHaveVideoDirectory(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Paths.VideoDirectory != expected {
		return fmt.Errorf("expected video_directory %q, got %q", expected, cfg.Paths.VideoDirectory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveOutputDirectory(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Paths.OutputDirectory != expected {
		return fmt.Errorf("expected output_directory %q, got %q", expected, cfg.Paths.OutputDirectory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveImagePrefix(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Export.ImagePrefix != expected {
		return fmt.Errorf("expected image_prefix %q, got %q", expected, cfg.Export.ImagePrefix)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveBackend(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Export.Backend != expected {
		return fmt.Errorf("expected backend %q, got %q", expected, cfg.Export.Backend)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveLatexOutput(state string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if want := state == "enabled"; cfg.Fragment.Enabled != want {
		return fmt.Errorf("expected LaTeX output %s, got enabled=%v", state, cfg.Fragment.Enabled)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveFragmentColumns(expected int) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Fragment.Columns != expected {
		return fmt.Errorf("expected %d fragment columns, got %d", expected, cfg.Fragment.Columns)
	}
	return nil
}

func (s *setupContext) theSetupShouldFailWith(message string) error {
	if s.err == nil {
		return fmt.Errorf("expected setup to fail")
	}
	if !strings.Contains(s.err.Error(), message) {
		return fmt.Errorf("expected error containing %q, got: %v", message, s.err)
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled")
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
