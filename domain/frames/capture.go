package frames

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// DefaultColumns is the number of subfigures sized to fit on one row
const DefaultColumns = 3

// ImageExtension is the extension of every generated image file
const ImageExtension = ".jpg"

// IndexPolicy converts a fractional frame position into a frame index
type IndexPolicy string

const (
	// IndexTruncate drops the fractional part, biasing towards the earlier frame
	IndexTruncate IndexPolicy = "truncate"

	// IndexNearest rounds to the nearest frame
	IndexNearest IndexPolicy = "nearest"
)

// ParseIndexPolicy parses a policy name; empty selects IndexTruncate
func ParseIndexPolicy(s string) (IndexPolicy, error) {
	switch IndexPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", IndexTruncate:
		return IndexTruncate, nil
	case IndexNearest:
		return IndexNearest, nil
	default:
		return "", fmt.Errorf("unknown index policy %q: expected truncate or nearest", s)
	}
}

// FrameIndex returns the frame index for a capture time at the given frame rate
func FrameIndex(seconds, frameRate float64, policy IndexPolicy) int {
	pos := seconds * frameRate
	if policy == IndexNearest {
		return int(math.Round(pos))
	}
	return int(pos)
}

// Crop holds the fraction of the frame to discard from each edge.
// Values are trusted; top+bottom and left+right should stay below 1.
type Crop struct {
	Top    float64 `yaml:"top"`
	Left   float64 `yaml:"left"`
	Bottom float64 `yaml:"bottom"`
	Right  float64 `yaml:"right"`
}

// IsZero returns true if the crop keeps the whole frame
func (c Crop) IsZero() bool {
	return c.Top == 0 && c.Left == 0 && c.Bottom == 0 && c.Right == 0
}

// Bounds returns the pixel rectangle kept from a frame with bounds b.
// Edge offsets are truncated to whole pixels. An over-cropped axis yields
// an empty rectangle rather than a flipped one.
func (c Crop) Bounds(b image.Rectangle) image.Rectangle {
	h, w := b.Dy(), b.Dx()

	y0 := int(float64(h) * c.Top)
	y1 := h - int(float64(h)*c.Bottom)
	x0 := int(float64(w) * c.Left)
	x1 := w - int(float64(w)*c.Right)

	if y1 < y0 {
		y1 = y0
	}
	if x1 < x0 {
		x1 = x0
	}

	return image.Rectangle{
		Min: image.Point{X: b.Min.X + x0, Y: b.Min.Y + y0},
		Max: image.Point{X: b.Min.X + x1, Y: b.Min.Y + y1},
	}
}

// String returns the crop as top,left,bottom,right
func (c Crop) String() string {
	return fmt.Sprintf("%s,%s,%s,%s",
		FormatSeconds(c.Top), FormatSeconds(c.Left), FormatSeconds(c.Bottom), FormatSeconds(c.Right))
}

// FormatSeconds renders a capture time in its shortest decimal form ("10", "10.5")
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// ImagePath returns the image file path for a capture time
func ImagePath(prefix string, seconds float64) string {
	return prefix + FormatSeconds(seconds) + ImageExtension
}

// CaptureRequest is an ordered list of capture times in seconds.
// Duplicates are allowed; order drives file and fragment ordering.
type CaptureRequest struct {
	Times []float64
}

// NewCaptureRequest parses capture time strings in order
func NewCaptureRequest(values []string) (CaptureRequest, error) {
	req := CaptureRequest{Times: make([]float64, 0, len(values))}
	for _, v := range values {
		t, err := ParseCaptureTime(v)
		if err != nil {
			return CaptureRequest{}, err
		}
		req.Times = append(req.Times, t)
	}
	return req, nil
}
