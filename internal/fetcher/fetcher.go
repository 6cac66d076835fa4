package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"video-fetcher/internal/database"
	"video-fetcher/internal/downloader"
	"video-fetcher/internal/logging"
	"video-fetcher/internal/media"
	"video-fetcher/internal/metrics"
	"video-fetcher/internal/startup"
	"video-fetcher/internal/transcoder"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	// ErrDisabled indicates that fetching is disabled because the store or
	// temp directory is not writable.
	ErrDisabled = errors.New("fetching disabled (data directory not writable)")

	// ErrInvalidURL indicates a request URL that is not plain http/https.
	ErrInvalidURL = errors.New("invalid video URL")

	// ErrTooLarge indicates a video over the size cap even after re-encoding.
	ErrTooLarge = errors.New("video exceeds size cap even after compression")
)

// tmpPrefix names per-fetch working directories under TmpDir.
const tmpPrefix = "video_dl_"

// Fetcher runs the download -> probe -> compress -> store pipeline and
// records every fetch in the database.
type Fetcher struct {
	db     *database.Database
	trans  *transcoder.Transcoder
	dl     *downloader.Downloader
	thumbs *media.ThumbnailMaker

	storeDir    string
	tmpDir      string
	maxFileSize int64
	timeout     time.Duration
	enabled     bool
}

// New creates a Fetcher wired to the given components and configuration.
func New(db *database.Database, trans *transcoder.Transcoder, dl *downloader.Downloader, config *startup.Config) *Fetcher {
	return &Fetcher{
		db:          db,
		trans:       trans,
		dl:          dl,
		thumbs:      media.NewThumbnailMaker(),
		storeDir:    config.StoreDir,
		tmpDir:      config.TmpDir,
		maxFileSize: config.MaxFileSize,
		timeout:     config.FetchTimeout,
		enabled:     config.FetchEnabled,
	}
}

// Enabled reports whether the fetch pipeline is available.
func (f *Fetcher) Enabled() bool {
	return f.enabled
}

// Fetch runs the whole pipeline for one URL synchronously and returns the
// resulting record. On pipeline failure the record is marked failed and
// returned alongside the error so callers can expose the record ID.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*database.FetchRecord, error) {
	if !f.enabled {
		metrics.FetchesTotal.WithLabelValues("rejected").Inc()
		return nil, ErrDisabled
	}
	if err := validateURL(rawURL); err != nil {
		metrics.FetchesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	rec := &database.FetchRecord{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Status:    database.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.db.InsertFetch(rec); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := f.process(ctx, rec)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FetchesTotal.WithLabelValues("failed").Inc()
		logging.Error("Fetch %s failed: %v", rec.ID, err)

		rec.Status = database.StatusFailed
		rec.Error = err.Error()
		if dbErr := f.db.MarkFailed(rec.ID, err.Error()); dbErr != nil {
			logging.Error("Failed to record fetch failure for %s: %v", rec.ID, dbErr)
		}
		return rec, err
	}

	metrics.FetchesTotal.WithLabelValues("completed").Inc()
	logging.Info("Fetch %s completed: %q (%d bytes)", rec.ID, rec.Title, rec.FinalBytes)
	return rec, nil
}

// process performs the pipeline steps inside a per-fetch temp directory and
// marks the record completed on success.
func (f *Fetcher) process(ctx context.Context, rec *database.FetchRecord) error {
	tmpDir, err := os.MkdirTemp(f.tmpDir, tmpPrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logging.Warn("failed to remove temp directory %s: %v", tmpDir, err)
		}
	}()

	// Download
	downloadedPath, _, err := f.dl.Download(ctx, rec.URL, tmpDir)
	if err != nil {
		return err
	}

	stat, err := os.Stat(downloadedPath)
	if err != nil {
		return fmt.Errorf("failed to stat downloaded file: %w", err)
	}
	rec.OriginalBytes = stat.Size()
	rec.Title = strings.TrimSuffix(filepath.Base(downloadedPath), filepath.Ext(downloadedPath))
	metrics.FetchBytesTotal.WithLabelValues("downloaded").Add(float64(rec.OriginalBytes))

	// Probe
	info, err := f.trans.Probe(ctx, downloadedPath)
	if err != nil {
		return err
	}
	rec.DurationSeconds = info.Duration
	rec.Width = info.Width
	rec.Height = info.Height
	rec.Codec = info.Codec
	rec.Container = info.Container

	// Compress when over the cap
	finalPath := downloadedPath
	rec.FinalBytes = rec.OriginalBytes

	if rec.OriginalBytes > f.maxFileSize {
		logging.Info("Fetch %s: %d bytes over cap %d, compressing", rec.ID, rec.OriginalBytes, f.maxFileSize)
		metrics.CompressionsTotal.Inc()

		compressedPath := filepath.Join(tmpDir, "compressed.mp4")
		if _, err := f.trans.Compress(ctx, downloadedPath, compressedPath); err != nil {
			return err
		}

		compStat, err := os.Stat(compressedPath)
		if err != nil {
			return fmt.Errorf("failed to stat compressed file: %w", err)
		}
		if compStat.Size() > f.maxFileSize {
			return fmt.Errorf("%w: %d bytes after compression (cap %d)",
				ErrTooLarge, compStat.Size(), f.maxFileSize)
		}

		finalPath = compressedPath
		rec.FinalBytes = compStat.Size()
		rec.Compressed = true
		rec.Codec = "h264"
		rec.Container = "mp4"
	}

	// Thumbnail is best effort; a fetch without one is still complete
	var thumb []byte
	if frame, err := f.trans.ExtractFrame(ctx, finalPath); err != nil {
		logging.Warn("Fetch %s: poster frame extraction failed: %v", rec.ID, err)
	} else if data, err := f.thumbs.Make(frame); err != nil {
		logging.Warn("Fetch %s: thumbnail generation failed: %v", rec.ID, err)
	} else {
		thumb = data
	}

	// Move into the store
	destDir := filepath.Join(f.storeDir, rec.ID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	destPath := filepath.Join(destDir, "video"+filepath.Ext(finalPath))
	if err := moveFile(finalPath, destPath); err != nil {
		_ = os.RemoveAll(destDir)
		return fmt.Errorf("failed to store video: %w", err)
	}
	rec.FilePath = destPath

	if thumb != nil {
		thumbPath := filepath.Join(destDir, "thumb.jpg")
		if err := os.WriteFile(thumbPath, thumb, 0o644); err != nil {
			logging.Warn("Fetch %s: failed to write thumbnail: %v", rec.ID, err)
		} else {
			rec.ThumbPath = thumbPath
		}
	}

	metrics.FetchBytesTotal.WithLabelValues("stored").Add(float64(rec.FinalBytes))

	if err := f.db.MarkCompleted(rec); err != nil {
		_ = os.RemoveAll(destDir)
		return err
	}
	return nil
}

// Remove deletes a fetch record and its stored files.
func (f *Fetcher) Remove(id string) error {
	rec, err := f.db.GetFetch(id)
	if err != nil {
		return err
	}

	if err := f.db.DeleteFetch(id); err != nil {
		return err
	}

	if rec.FilePath != "" {
		destDir := filepath.Dir(rec.FilePath)
		if err := os.RemoveAll(destDir); err != nil {
			logging.Warn("failed to remove stored files for %s: %v", id, err)
		}
	}
	return nil
}

// validateURL accepts only absolute http/https URLs with a host.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
