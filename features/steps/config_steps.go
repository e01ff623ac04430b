//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"video-stills/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	cfg        *config.Config
	loadErr    error
}

// SharedConfigContext is reset before each scenario via After hook
var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.cfg = nil
		testCtx.loadErr = nil
		return c, nil
	})

	// Reset context after each scenario
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedConfigContext = &configContext{}
		return c, nil
	})

	ctx.Step(`^a configuration file containing:$`, testCtx.aConfigurationFileContaining)
	ctx.Step(`^no configuration file exists$`, testCtx.noConfigurationFileExists)
	ctx.Step(`^I load the configuration$`, testCtx.iLoadTheConfiguration)
	ctx.Step(`^I attempt to load the configuration$`, testCtx.iAttemptToLoadTheConfiguration)
	ctx.Step(`^the video directory should be "([^"]*)"$`, testCtx.theVideoDirectoryShouldBe)
	ctx.Step(`^the image prefix should be "([^"]*)"$`, testCtx.theImagePrefixShouldBe)
	ctx.Step(`^the JPEG quality should be (\d+)$`, testCtx.theJPEGQualityShouldBe)
	ctx.Step(`^the crop should be top ([\d.]+) left ([\d.]+) bottom ([\d.]+) right ([\d.]+)$`, testCtx.theCropShouldBe)
	ctx.Step(`^the fragment columns should be (\d+)$`, testCtx.theFragmentColumnsShouldBe)
	ctx.Step(`^I should receive an error about missing configuration$`, testCtx.iShouldReceiveAnErrorAboutMissingConfiguration)
}

func (c *configContext) aConfigurationFileContaining(doc *godog.DocString) error {
	return os.WriteFile(c.configPath, []byte(doc.Content), 0644)
}

func (c *configContext) noConfigurationFileExists() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return fmt.Errorf("unexpected config file at %s", c.configPath)
	}
	return nil
}

func (c *configContext) iLoadTheConfiguration() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("unexpected error loading config: %w", err)
	}
	c.cfg = cfg
	return nil
}

func (c *configContext) iAttemptToLoadTheConfiguration() error {
	cfg, err := config.Load(c.configPath)
	c.cfg = cfg
	c.loadErr = err
	return nil
}

func (c *configContext) loaded() (*config.Config, error) {
	if c.cfg == nil {
		return nil, fmt.Errorf("config was not loaded")
	}
	return c.cfg, nil
}

func (c *configContext) theVideoDirectoryShouldBe(expected string) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	if cfg.Paths.VideoDirectory != expected {
		return fmt.Errorf("expected video directory %q, got %q", expected, cfg.Paths.VideoDirectory)
	}
	return nil
}

func (c *configContext) theImagePrefixShouldBe(expected string) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	if cfg.Export.ImagePrefix != expected {
		return fmt.Errorf("expected image prefix %q, got %q", expected, cfg.Export.ImagePrefix)
	}
	return nil
}

func (c *configContext) theJPEGQualityShouldBe(expected int) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	if cfg.Export.Quality != expected {
		return fmt.Errorf("expected quality %d, got %d", expected, cfg.Export.Quality)
	}
	return nil
}

func (c *configContext) theCropShouldBe(top, left, bottom, right float64) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	got := cfg.Crop
	if got.Top != top || got.Left != left || got.Bottom != bottom || got.Right != right {
		return fmt.Errorf("expected crop top %v left %v bottom %v right %v, got %s", top, left, bottom, right, got)
	}
	return nil
}

func (c *configContext) theFragmentColumnsShouldBe(expected int) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	if cfg.Fragment.Columns != expected {
		return fmt.Errorf("expected columns %d, got %d", expected, cfg.Fragment.Columns)
	}
	return nil
}

func (c *configContext) iShouldReceiveAnErrorAboutMissingConfiguration() error {
	if c.loadErr == nil {
		return fmt.Errorf("expected an error but got none")
	}
	return nil
}
