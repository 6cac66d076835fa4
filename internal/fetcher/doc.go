// Package fetcher orchestrates the fetch pipeline: download a video with
// yt-dlp into a per-fetch temp directory, probe it with ffprobe, re-encode
// with ffmpeg when it exceeds the size cap, generate a thumbnail, and move
// the result into the store, recording the whole lifecycle in the database.
//
// Fetches run synchronously within the caller's request; there is no queue
// and no retry. A janitor sweeps temp directories orphaned by killed
// pipelines.
package fetcher
