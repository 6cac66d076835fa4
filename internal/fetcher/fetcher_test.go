package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"video-fetcher/internal/database"
	"video-fetcher/internal/downloader"
	"video-fetcher/internal/startup"
	"video-fetcher/internal/transcoder"
)

// installFakeTools puts shell-script stand-ins for yt-dlp, ffprobe and ffmpeg
// on PATH so the pipeline runs without network access or real encoders.
// videoBytes sizes the "downloaded" file, compressedBytes the "re-encoded"
// one, letting tests steer the size-cap decision.
func installFakeTools(t *testing.T, videoBytes, compressedBytes int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool stand-ins require a POSIX shell")
	}

	binDir := t.TempDir()

	scripts := map[string]string{
		// Finds the -o output template, writes a file of the requested
		// size beside it, and prints the final path the way
		// --print after_move:filepath does.
		"yt-dlp": fmt.Sprintf(`#!/bin/sh
out=""
prev=""
for arg in "$@"; do
	if [ "$prev" = "-o" ]; then out="$arg"; fi
	prev="$arg"
done
dir=$(dirname "$out")
path="$dir/Test Video.mp4"
dd if=/dev/zero of="$path" bs=%d count=1 2>/dev/null
printf '%%s\n' "$path"
`, videoBytes),
		"ffprobe": `#!/bin/sh
cat <<'EOF'
{"format":{"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"12.5"},"streams":[{"codec_type":"video","codec_name":"h264","width":640,"height":360}]}
EOF
`,
		// A frame-extraction run (last argument "-") emits nothing, which
		// the pipeline tolerates; a compress run writes the output file.
		"ffmpeg": fmt.Sprintf(`#!/bin/sh
for last in "$@"; do :; done
if [ "$last" = "-" ]; then exit 0; fi
dd if=/dev/zero of="$last" bs=%d count=1 2>/dev/null
`, compressedBytes),
	}

	for name, body := range scripts {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte(body), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func testConfig(t *testing.T, enabled bool) *startup.Config {
	t.Helper()

	dataDir := t.TempDir()
	config := &startup.Config{
		Port:         8000,
		DataDir:      dataDir,
		MaxFileSize:  startup.DefaultMaxFileSize,
		FetchTimeout: time.Minute,
		DatabasePath: filepath.Join(dataDir, "fetch.db"),
		StoreDir:     filepath.Join(dataDir, "store"),
		TmpDir:       filepath.Join(dataDir, "tmp"),
		FetchEnabled: enabled,
	}
	for _, dir := range []string{config.StoreDir, config.TmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return config
}

func testFetcher(t *testing.T, enabled bool) (*Fetcher, *database.Database) {
	t.Helper()

	config := testConfig(t, enabled)
	db, err := database.New(config.DatabasePath)
	if err != nil {
		t.Fatalf("database.New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return New(db, transcoder.New(), downloader.New(), config), db
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://example.com/watch?v=abc", false},
		{"http", "http://example.com/video", false},
		{"ftp scheme", "ftp://example.com/video", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no scheme", "example.com/video", true},
		{"no host", "https://", true},
		{"empty", "", true},
		{"plain text", "watch this!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("validateURL(%q) = %v, want ErrInvalidURL", tt.url, err)
			}
		})
	}
}

func TestFetchDisabled(t *testing.T) {
	f, _ := testFetcher(t, false)

	if _, err := f.Fetch(context.Background(), "https://example.com/v"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Fetch() on disabled fetcher = %v, want ErrDisabled", err)
	}
	if f.Enabled() {
		t.Error("Enabled() = true for disabled fetcher")
	}
}

func TestFetchInvalidURL(t *testing.T) {
	f, db := testFetcher(t, true)

	if _, err := f.Fetch(context.Background(), "not a url"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Fetch(invalid) = %v, want ErrInvalidURL", err)
	}

	// Rejected fetches never reach the database
	records, err := db.ListFetches(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("rejected fetch left %d records", len(records))
	}
}

func TestFetchToolFailureRecorded(t *testing.T) {
	f, db := testFetcher(t, true)

	// The URL never resolves, so the download step fails regardless of
	// whether yt-dlp is installed. The record must end up failed.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec, err := f.Fetch(ctx, "https://invalid.invalid/nope")
	if err == nil {
		t.Skip("unexpected fetch success, cannot test failure path")
	}
	if rec == nil {
		t.Fatal("Fetch() returned nil record on pipeline failure")
	}
	if rec.Status != database.StatusFailed {
		t.Errorf("Status = %q, want failed", rec.Status)
	}

	stored, err := db.GetFetch(rec.ID)
	if err != nil {
		t.Fatalf("GetFetch() error: %v", err)
	}
	if stored.Status != database.StatusFailed || stored.Error == "" {
		t.Errorf("stored record = %+v, want failed with error message", stored)
	}
}

func TestFetchUnderCapStoresAsIs(t *testing.T) {
	installFakeTools(t, 1000, 0)
	f, db := testFetcher(t, true)
	f.maxFileSize = 4096

	rec, err := f.Fetch(context.Background(), "https://example.com/small")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if rec.Compressed {
		t.Error("Compressed = true for a file under the cap")
	}
	if rec.OriginalBytes != 1000 || rec.FinalBytes != 1000 {
		t.Errorf("bytes = %d/%d, want 1000/1000", rec.OriginalBytes, rec.FinalBytes)
	}
	if rec.Title != "Test Video" {
		t.Errorf("Title = %q, want %q", rec.Title, "Test Video")
	}
	if rec.Codec != "h264" || rec.Container != "mp4" {
		t.Errorf("probed as %s/%s, want h264/mp4", rec.Codec, rec.Container)
	}

	stat, err := os.Stat(rec.FilePath)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if stat.Size() != 1000 {
		t.Errorf("stored size = %d, want 1000", stat.Size())
	}

	stored, err := db.GetFetch(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != database.StatusCompleted {
		t.Errorf("stored Status = %q, want completed", stored.Status)
	}
}

func TestFetchCompressesOverCap(t *testing.T) {
	installFakeTools(t, 8000, 1000)
	f, db := testFetcher(t, true)
	f.maxFileSize = 4096

	rec, err := f.Fetch(context.Background(), "https://example.com/big")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if !rec.Compressed {
		t.Error("Compressed = false for a file over the cap")
	}
	if rec.OriginalBytes != 8000 {
		t.Errorf("OriginalBytes = %d, want 8000", rec.OriginalBytes)
	}
	if rec.FinalBytes != 1000 {
		t.Errorf("FinalBytes = %d, want 1000", rec.FinalBytes)
	}
	if rec.Codec != "h264" || rec.Container != "mp4" {
		t.Errorf("result recorded as %s/%s, want h264/mp4", rec.Codec, rec.Container)
	}
	if filepath.Ext(rec.FilePath) != ".mp4" {
		t.Errorf("stored as %q, want .mp4", rec.FilePath)
	}

	stored, err := db.GetFetch(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != database.StatusCompleted || !stored.Compressed {
		t.Errorf("stored record = %+v, want completed and compressed", stored)
	}
}

func TestFetchTooLargeAfterCompression(t *testing.T) {
	installFakeTools(t, 8000, 6000)
	f, db := testFetcher(t, true)
	f.maxFileSize = 4096

	rec, err := f.Fetch(context.Background(), "https://example.com/huge")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Fetch() error = %v, want ErrTooLarge", err)
	}
	if rec == nil {
		t.Fatal("Fetch() returned nil record with ErrTooLarge")
	}
	if rec.Status != database.StatusFailed {
		t.Errorf("Status = %q, want failed", rec.Status)
	}

	stored, err := db.GetFetch(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != database.StatusFailed || stored.Error == "" {
		t.Errorf("stored record = %+v, want failed with error text", stored)
	}

	// Nothing may land in the store for a refused fetch
	if _, err := os.Stat(filepath.Join(f.storeDir, rec.ID)); !os.IsNotExist(err) {
		t.Error("store directory exists for a fetch refused over the cap")
	}
}

func TestRemove(t *testing.T) {
	f, db := testFetcher(t, true)

	// Simulate a completed fetch with stored files
	rec := &database.FetchRecord{
		ID:        "rm-1",
		URL:       "https://example.com/v",
		Status:    database.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.InsertFetch(rec); err != nil {
		t.Fatal(err)
	}

	destDir := filepath.Join(f.storeDir, rec.ID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatal(err)
	}
	rec.FilePath = filepath.Join(destDir, "video.mp4")
	if err := os.WriteFile(rec.FilePath, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkCompleted(rec); err != nil {
		t.Fatal(err)
	}

	if err := f.Remove(rec.ID); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	if _, err := db.GetFetch(rec.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("record still present after Remove: %v", err)
	}
	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Error("stored files still present after Remove")
	}
}

func TestRemoveMissing(t *testing.T) {
	f, _ := testFetcher(t, true)

	if err := f.Remove("missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Remove(missing) = %v, want ErrNotFound", err)
	}
}

func TestSweepTempDirs(t *testing.T) {
	f, _ := testFetcher(t, true)

	old := filepath.Join(f.tmpDir, tmpPrefix+"old")
	fresh := filepath.Join(f.tmpDir, tmpPrefix+"fresh")
	unrelated := filepath.Join(f.tmpDir, "unrelated")
	for _, dir := range []string{old, fresh, unrelated} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(unrelated, stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := f.SweepTempDirs(time.Hour)
	if err != nil {
		t.Fatalf("SweepTempDirs() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale fetch dir survived the sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh fetch dir was swept")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("unrelated dir was swept")
	}
}

func TestSweepTempDirsMissingDir(t *testing.T) {
	f, _ := testFetcher(t, true)
	f.tmpDir = filepath.Join(f.tmpDir, "never-created")

	removed, err := f.SweepTempDirs(time.Hour)
	if err != nil {
		t.Errorf("SweepTempDirs(missing dir) error: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")

	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := moveFile(src, dst); err != nil {
		t.Fatalf("moveFile() error: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Errorf("destination content = %q, %v", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
}
