package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"video-fetcher/internal/logging"
	"video-fetcher/internal/metrics"
)

const binary = "yt-dlp"

// outputTemplate caps the title at 200 characters so filenames stay within
// filesystem limits.
const outputTemplate = "%(title).200s.%(ext)s"

// formatChain prefers a directly usable mp4 and falls back to the best
// available stream, merged into mp4.
const formatChain = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Result captures the outcome of one yt-dlp invocation.
type Result struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// Downloader shells out to yt-dlp to fetch a video from a URL into a local
// directory. Downloads are bounded by the caller's context; outstanding
// processes can be killed at shutdown via Cleanup.
type Downloader struct {
	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates a new Downloader instance.
func New() *Downloader {
	return &Downloader{
		processes: make(map[string]*exec.Cmd),
	}
}

// Download fetches the video at url into dir and returns the path of the
// downloaded file.
func (d *Downloader) Download(ctx context.Context, url, dir string) (string, Result, error) {
	cmd := exec.CommandContext(ctx, binary, buildArgs(url, dir)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Registry is keyed by the per-fetch directory: unlike the URL it is
	// unique per invocation, so concurrent fetches of the same URL cannot
	// shadow each other's entry.
	d.processMu.Lock()
	d.processes[dir] = cmd
	d.processMu.Unlock()

	defer func() {
		d.processMu.Lock()
		delete(d.processes, dir)
		d.processMu.Unlock()
	}()

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Duration: time.Since(start),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	metrics.RecordToolRun(binary, result.Duration.Seconds(), err)

	if err != nil {
		if ctx.Err() != nil {
			return "", result, fmt.Errorf("download canceled: %w", ctx.Err())
		}
		return "", result, fmt.Errorf("%s failed (exit %d): %w - %s", binary, result.ExitCode, err, result.Stderr)
	}

	path, err := parseOutputPath(stdout.String())
	if err != nil {
		return "", result, err
	}

	if _, err := os.Stat(path); err != nil {
		return "", result, fmt.Errorf("downloaded file not accessible: %w", err)
	}

	logging.Debug("Downloaded %s to %s in %v", url, path, result.Duration)
	return path, result, nil
}

// Version returns the yt-dlp version string, used as a smoke test that the
// binary is present and runnable.
func (d *Downloader) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Cleanup kills all outstanding download processes. Called during shutdown.
func (d *Downloader) Cleanup() {
	d.processMu.Lock()
	defer d.processMu.Unlock()

	for dir, cmd := range d.processes {
		if cmd.Process != nil {
			logging.Info("Killing download process in: %s", dir)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill download process in %s: %v", dir, err)
			}
		}
	}
}

// buildArgs assembles the yt-dlp invocation. --print after_move:filepath
// makes yt-dlp emit the final merged file path on stdout; --no-simulate is
// required because --print implies simulation otherwise.
func buildArgs(url, dir string) []string {
	return []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-simulate",
		"-f", formatChain,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(dir, outputTemplate),
		"--print", "after_move:filepath",
		url,
	}
}

// parseOutputPath extracts the final file path from yt-dlp stdout. The path
// is the last non-empty line; anything before it is incidental output.
func parseOutputPath(output string) (string, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s did not report an output file path", binary)
}
