//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-stills/cmd"
	"video-stills/domain/frames"
	"video-stills/infrastructure/filesystem"
	"video-stills/infrastructure/imagefile"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// fakeVideo is an in-memory video of solid grey frames, shade frameShade(index)
type fakeVideo struct {
	fps    float64
	count  int
	width  int
	height int
	pos    int
	seeks  []int
	closes int
}

func (v *fakeVideo) FrameRate() float64 { return v.fps }
func (v *fakeVideo) FrameCount() int    { return v.count }

func (v *fakeVideo) Seek(index int) error {
	v.seeks = append(v.seeks, index)
	if index < 0 || index >= v.count {
		return fmt.Errorf("%w: frame %d out of range", frames.ErrFrameDecode, index)
	}
	v.pos = index
	return nil
}

func (v *fakeVideo) ReadFrame() (image.Image, error) {
	if v.pos >= v.count {
		return nil, fmt.Errorf("%w: end of stream", frames.ErrFrameDecode)
	}
	img := imaging.New(v.width, v.height, color.Gray{Y: frameShade(v.pos)})
	v.pos++
	return img, nil
}

func frameShade(index int) uint8 {
	return uint8(index * 40 % 256)
}

func (v *fakeVideo) Close() error {
	v.closes++
	return nil
}

// fakeVideoOpener hands out the scenario's video, or fails when none exists
type fakeVideoOpener struct {
	video *fakeVideo
	opens []string
}

func (o *fakeVideoOpener) Open(ctx context.Context, path string) (frames.VideoSource, error) {
	o.opens = append(o.opens, path)
	if o.video == nil {
		return nil, fmt.Errorf("open %s: no such file or directory", path)
	}
	return o.video, nil
}

// exportContext holds test state for export scenarios
type exportContext struct {
	tempDir string
	opener  *fakeVideoOpener
	opts    cmd.ExportOptions
	output  *bytes.Buffer
	err     error
}

// SharedExportContext is reset before each scenario via Before hook
var SharedExportContext *exportContext

func getExportContext() *exportContext {
	return SharedExportContext
}

func InitializeExportScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "export-test-*")
		if err != nil {
			return c, err
		}
		SharedExportContext = &exportContext{
			tempDir: tempDir,
			opener:  &fakeVideoOpener{},
			opts: cmd.ExportOptions{
				VideoPath:    "recording.mp4",
				OutputDir:    tempDir,
				Prefix:       "Image_",
				Columns:      frames.DefaultColumns,
				FragmentFile: filepath.Join(tempDir, frames.DefaultFragmentFile),
				Quality:      imagefile.DefaultQuality,
			},
			output: &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if e := getExportContext(); e != nil && e.tempDir != "" {
			os.RemoveAll(e.tempDir)
		}
		SharedExportContext = nil
		return c, nil
	})

	ctx.Step(`^a (\d+) frame video at (\d+(?:\.\d+)?) fps sized (\d+)x(\d+)$`, aFrameVideoAtFpsSized)
	ctx.Step(`^no video can be opened$`, noVideoCanBeOpened)
	ctx.Step(`^the image prefix is "([^"]*)"$`, theImagePrefixIs)
	ctx.Step(`^the output directory does not exist$`, theOutputDirectoryDoesNotExist)
	ctx.Step(`^the frame index policy is "([^"]*)"$`, theFrameIndexPolicyIs)
	ctx.Step(`^the crop is top ([\d.]+) left ([\d.]+) bottom ([\d.]+) right ([\d.]+)$`, theCropIs)
	ctx.Step(`^LaTeX output is enabled with path "([^"]*)" and (\d+) columns$`, latexOutputIsEnabled)
	ctx.Step(`^missing frames are left out of the fragment$`, missingFramesAreLeftOutOfTheFragment)
	ctx.Step(`^I export frames at "([^"]*)"$`, iExportFramesAt)
	ctx.Step(`^I attempt to export frames at "([^"]*)"$`, iAttemptToExportFramesAt)
	ctx.Step(`^the following images should exist:$`, theFollowingImagesShouldExist)
	ctx.Step(`^the image "([^"]*)" should not exist$`, theImageShouldNotExist)
	ctx.Step(`^the image "([^"]*)" should be (\d+)x(\d+) pixels$`, theImageShouldBePixels)
	ctx.Step(`^the image "([^"]*)" should show frame (\d+)$`, theImageShouldShowFrame)
	ctx.Step(`^the video should have been seeked to frames "([^"]*)"$`, theVideoShouldHaveBeenSeekedToFrames)
	ctx.Step(`^the video should have been closed once$`, theVideoShouldHaveBeenClosedOnce)
	ctx.Step(`^the export output should contain "([^"]*)"$`, theExportOutputShouldContain)
	ctx.Step(`^the export output should not contain "([^"]*)"$`, theExportOutputShouldNotContain)
	ctx.Step(`^the fragment file should have (\d+) subfigures? of width "([^"]*)"$`, theFragmentFileShouldHaveSubfigures)
	ctx.Step(`^the fragment file should reference "([^"]*)" captioned "([^"]*)"$`, theFragmentFileShouldReference)
	ctx.Step(`^no fragment file should exist$`, noFragmentFileShouldExist)
	ctx.Step(`^I should receive a source open error$`, iShouldReceiveASourceOpenError)
	ctx.Step(`^I should receive an output write error$`, iShouldReceiveAnOutputWriteError)
	ctx.Step(`^I should receive an invalid capture time error$`, iShouldReceiveAnInvalidCaptureTimeError)
}

func aFrameVideoAtFpsSized(count int, fps float64, width, height int) error {
	e := getExportContext()
	e.opener.video = &fakeVideo{fps: fps, count: count, width: width, height: height}
	return nil
}

func noVideoCanBeOpened() error {
	getExportContext().opener.video = nil
	return nil
}

func theImagePrefixIs(prefix string) error {
	getExportContext().opts.Prefix = prefix
	return nil
}

func theOutputDirectoryDoesNotExist() error {
	e := getExportContext()
	e.opts.OutputDir = filepath.Join(e.tempDir, "missing")
	return nil
}

func theFrameIndexPolicyIs(policy string) error {
	getExportContext().opts.IndexPolicy = policy
	return nil
}

func theCropIs(top, left, bottom, right float64) error {
	getExportContext().opts.Crop = frames.Crop{Top: top, Left: left, Bottom: bottom, Right: right}
	return nil
}

func latexOutputIsEnabled(path string, columns int) error {
	e := getExportContext()
	e.opts.Latex = true
	e.opts.LatexPath = path
	e.opts.Columns = columns
	return nil
}

func missingFramesAreLeftOutOfTheFragment() error {
	getExportContext().opts.FragmentPolicy = frames.FragmentExtractedOnly
	return nil
}

func runExport(times string) error {
	e := getExportContext()
	e.opts.CaptureTimes = strings.Split(times, ",")
	e.err = cmd.RunExportWithDependencies(
		context.Background(),
		e.opener,
		imagefile.NewCropper(),
		imagefile.NewWriter(imagefile.WithQuality(e.opts.Quality)),
		filesystem.NewFragmentFile(),
		e.opts,
		e.output,
	)
	return e.err
}

func iExportFramesAt(times string) error {
	if err := runExport(times); err != nil {
		return fmt.Errorf("unexpected error: %v", err)
	}
	return nil
}

func iAttemptToExportFramesAt(times string) error {
	if err := runExport(times); err == nil {
		return fmt.Errorf("expected an error but export succeeded")
	}
	return nil
}

func imagePath(name string) string {
	return filepath.Join(getExportContext().tempDir, name)
}

func theFollowingImagesShouldExist(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		name := row.Cells[0].Value
		if _, err := os.Stat(imagePath(name)); err != nil {
			return fmt.Errorf("expected image %s: %v", name, err)
		}
	}
	return nil
}

func theImageShouldNotExist(name string) error {
	if _, err := os.Stat(imagePath(name)); err == nil {
		return fmt.Errorf("expected no image %s, but it exists", name)
	}
	return nil
}

func openImage(name string) (image.Image, error) {
	img, err := imaging.Open(imagePath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", name, err)
	}
	return img, nil
}

func theImageShouldBePixels(name string, width, height int) error {
	img, err := openImage(name)
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("expected %s to be %dx%d, got %dx%d", name, width, height, b.Dx(), b.Dy())
	}
	return nil
}

func theImageShouldShowFrame(name string, index int) error {
	img, err := openImage(name)
	if err != nil {
		return err
	}
	b := img.Bounds()
	got := color.GrayModel.Convert(img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)).(color.Gray).Y
	// JPEG encoding shifts flat shades by at most a couple of levels
	if diff := int(got) - int(frameShade(index)); diff < -2 || diff > 2 {
		return fmt.Errorf("expected %s to show frame %d, got shade %d", name, index, got)
	}
	return nil
}

func theVideoShouldHaveBeenSeekedToFrames(list string) error {
	e := getExportContext()
	var want []int
	for _, s := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		want = append(want, n)
	}
	got := e.opener.video.seeks
	if fmt.Sprint(got) != fmt.Sprint(want) {
		return fmt.Errorf("expected seeks %v, got %v", want, got)
	}
	return nil
}

func theVideoShouldHaveBeenClosedOnce() error {
	e := getExportContext()
	if e.opener.video.closes != 1 {
		return fmt.Errorf("expected the video to be closed once, got %d", e.opener.video.closes)
	}
	return nil
}

func theExportOutputShouldContain(text string) error {
	e := getExportContext()
	if !strings.Contains(e.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, e.output.String())
	}
	return nil
}

func theExportOutputShouldNotContain(text string) error {
	e := getExportContext()
	if strings.Contains(e.output.String(), text) {
		return fmt.Errorf("expected output not to contain %q, got:\n%s", text, e.output.String())
	}
	return nil
}

func readFragment() (string, error) {
	data, err := os.ReadFile(getExportContext().opts.FragmentFile)
	if err != nil {
		return "", fmt.Errorf("failed to read fragment file: %w", err)
	}
	return string(data), nil
}

func theFragmentFileShouldHaveSubfigures(count int, width string) error {
	body, err := readFragment()
	if err != nil {
		return err
	}
	opening := "\t\\begin{subfigure}{" + width + "\\textwidth}\n"
	if got := strings.Count(body, opening); got != count {
		return fmt.Errorf("expected %d subfigures of width %s, got %d in:\n%s", count, width, got, body)
	}
	if got := strings.Count(body, "\\begin{subfigure}"); got != count {
		return fmt.Errorf("expected %d subfigures in total, got %d", count, got)
	}
	if !strings.HasPrefix(body, "\\begin{figure}[H]\n") || !strings.HasSuffix(body, "\\end{figure}\n") {
		return fmt.Errorf("fragment is not a complete figure:\n%s", body)
	}
	return nil
}

func theFragmentFileShouldReference(ref, caption string) error {
	body, err := readFragment()
	if err != nil {
		return err
	}
	want := "\t\t\\includegraphics[width=\\textwidth]{" + ref + "}\n\t\t\\caption{" + caption + "}\n"
	if !strings.Contains(body, want) {
		return fmt.Errorf("expected fragment to reference %s captioned %q, got:\n%s", ref, caption, body)
	}
	return nil
}

func noFragmentFileShouldExist() error {
	if _, err := os.Stat(getExportContext().opts.FragmentFile); err == nil {
		return fmt.Errorf("expected no fragment file, but one was written")
	}
	return nil
}

func expectError(target error) error {
	e := getExportContext()
	if e.err == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !errors.Is(e.err, target) {
		return fmt.Errorf("expected %v, got: %v", target, e.err)
	}
	return nil
}

func iShouldReceiveASourceOpenError() error {
	return expectError(frames.ErrSourceOpen)
}

func iShouldReceiveAnOutputWriteError() error {
	return expectError(frames.ErrOutputWrite)
}

func iShouldReceiveAnInvalidCaptureTimeError() error {
	return expectError(frames.ErrInvalidCaptureTime)
}
