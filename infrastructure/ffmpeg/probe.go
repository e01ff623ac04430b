package ffmpeg

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// probeOutput is the subset of `ffprobe -of json` used to size a stream
type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// StreamInfo describes the first video stream of a file
type StreamInfo struct {
	FrameRate  float64
	FrameCount int
}

func probeArgs(videoPath string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type,avg_frame_rate,r_frame_rate,nb_frames,duration",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	}
}

// parseProbe extracts frame rate and frame count from ffprobe JSON.
// When the container has no frame count it is derived from the duration.
func parseProbe(data []byte) (StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return StreamInfo{}, fmt.Errorf("invalid ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("no video stream found")
	}
	stream := out.Streams[0]

	fps, err := parseRate(stream.AvgFrameRate)
	if err != nil || fps <= 0 {
		fps, err = parseRate(stream.RFrameRate)
		if err != nil {
			return StreamInfo{}, fmt.Errorf("unknown frame rate: %w", err)
		}
	}
	if fps <= 0 {
		return StreamInfo{}, fmt.Errorf("unknown frame rate %q", stream.RFrameRate)
	}

	info := StreamInfo{FrameRate: fps}
	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		info.FrameCount = n
		return info, nil
	}

	duration := stream.Duration
	if duration == "" || duration == "N/A" {
		duration = out.Format.Duration
	}
	if d, err := strconv.ParseFloat(duration, 64); err == nil && d > 0 {
		info.FrameCount = int(math.Round(d * fps))
	}
	return info, nil
}

// parseRate parses an ffprobe rational such as "30000/1001" or "25/1"
func parseRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q", s)
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q", s)
	}
	if d == 0 {
		return 0, nil
	}
	return n / d, nil
}
