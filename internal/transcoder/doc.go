// Package transcoder wraps the ffmpeg and ffprobe binaries for the fetch
// pipeline.
//
// It supports:
//   - Media metadata extraction (codec, resolution, duration, container)
//   - Size-capped re-encoding to H.264/AAC
//   - Poster frame extraction for thumbnails
//
// Every invocation is an out-of-process call with its own exit code and
// failure domain: results are reported through RunResult, cancellation comes
// from the caller's context, and outstanding processes are killed at
// shutdown via Cleanup. ffmpeg must be installed and available in the system
// PATH; its absence surfaces as an invocation error, not a startup failure.
package transcoder
