package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"video-fetcher/internal/logging"
	"video-fetcher/internal/metrics"
)

// Default width cap applied when re-encoding, matching the fetch pipeline's
// "shrink to fit" policy. Videos narrower than this are never upscaled.
const defaultMaxWidth = 1280

// Keep only the tail of stderr in results; ffmpeg can be very chatty.
const stderrTailBytes = 2048

// RunResult captures the outcome of one external tool invocation: exit
// status, captured stderr, and wall-clock duration. Callers must never
// assume an invocation succeeded without checking the accompanying error.
type RunResult struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// MediaInfo contains probed information about a media file.
type MediaInfo struct {
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Codec     string  `json:"codec"`
	Container string  `json:"container"`
}

var compatibleCodecs = map[string]bool{
	"h264": true,
	"vp8":  true,
	"vp9":  true,
	"av1":  true,
}

var compatibleContainers = map[string]bool{
	"mp4":  true,
	"webm": true,
	"ogg":  true,
}

// Compatible reports whether the file can be served as-is to a browser
// without re-encoding.
func (i *MediaInfo) Compatible() bool {
	return compatibleCodecs[i.Codec] && compatibleContainers[i.Container]
}

// Transcoder wraps ffmpeg and ffprobe invocations. All invocations take the
// caller's context and report through RunResult; outstanding processes can be
// killed at shutdown via Cleanup.
type Transcoder struct {
	maxWidth  int
	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates a new Transcoder instance.
func New() *Transcoder {
	return &Transcoder{
		maxWidth:  defaultMaxWidth,
		processes: make(map[string]*exec.Cmd),
	}
}

// run executes an external tool, tracking the process for Cleanup and
// recording invocation metrics. key identifies the invocation in the process
// registry, normally the input file path.
func (t *Transcoder) run(ctx context.Context, tool, key string, args []string) ([]byte, RunResult, error) {
	cmd := exec.CommandContext(ctx, tool, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.processMu.Lock()
	t.processes[key] = cmd
	t.processMu.Unlock()

	defer func() {
		t.processMu.Lock()
		delete(t.processes, key)
		t.processMu.Unlock()
	}()

	start := time.Now()
	err := cmd.Run()
	result := RunResult{
		Duration: time.Since(start),
		Stderr:   stderrTail(stderr.String()),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	metrics.RecordToolRun(tool, result.Duration.Seconds(), err)

	if err != nil {
		if ctx.Err() != nil {
			return nil, result, fmt.Errorf("%s canceled: %w", tool, ctx.Err())
		}
		return nil, result, fmt.Errorf("%s failed (exit %d): %w - %s", tool, result.ExitCode, err, result.Stderr)
	}

	return stdout.Bytes(), result, nil
}

// Probe retrieves duration, dimensions, codec and container of a media file
// via ffprobe.
func (t *Transcoder) Probe(ctx context.Context, filePath string) (*MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	stdout, _, err := t.run(ctx, "ffprobe", filePath, args)
	if err != nil {
		return nil, err
	}

	return parseProbeOutput(stdout)
}

// Compress re-encodes a video to H.264/AAC with the width capped, the same
// recipe used for size reduction everywhere in the pipeline.
func (t *Transcoder) Compress(ctx context.Context, inputPath, outputPath string) (RunResult, error) {
	args := buildCompressArgs(inputPath, outputPath, t.maxWidth)

	_, result, err := t.run(ctx, "ffmpeg", inputPath, args)
	if err != nil {
		return result, err
	}

	logging.Debug("Compressed %s in %v", inputPath, result.Duration)
	return result, nil
}

// ExtractFrame grabs a single poster frame as JPEG bytes, roughly one second
// into the video.
func (t *Transcoder) ExtractFrame(ctx context.Context, filePath string) ([]byte, error) {
	args := []string{
		"-ss", "1",
		"-i", filePath,
		"-frames:v", "1",
		"-c:v", "mjpeg",
		"-f", "image2pipe",
		"-",
	}

	frame, _, err := t.run(ctx, "ffmpeg", filePath+":frame", args)
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame data for %s", filePath)
	}

	return frame, nil
}

// Version returns the first line of `ffmpeg -version` output, a smoke test
// that the binary is present and runnable.
func (t *Transcoder) Version(ctx context.Context) (string, error) {
	stdout, _, err := t.run(ctx, "ffmpeg", "version", []string{"-version"})
	if err != nil {
		return "", err
	}

	line, _, _ := strings.Cut(string(stdout), "\n")
	return strings.TrimSpace(line), nil
}

// Cleanup kills all outstanding tool processes. Called during shutdown.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for key, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing tool process for: %s", key)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill process for %s: %v", key, err)
			}
		}
	}
}

// buildCompressArgs assembles the ffmpeg re-encode invocation. The scale
// expression never upscales: min(maxWidth, iw), height follows at an even
// value as libx264 requires.
func buildCompressArgs(inputPath, outputPath string, maxWidth int) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale='min(%d,iw)':-2", maxWidth),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "28",
		"-c:a", "aac",
		"-b:a", "128k",
		outputPath,
	}
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailBytes {
		return s[len(s)-stderrTailBytes:]
	}
	return s
}
