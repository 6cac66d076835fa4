// Package metrics defines the Prometheus metrics exposed by the video
// fetcher: HTTP request counters and latencies, fetch pipeline outcomes,
// external tool invocations (ffmpeg, ffprobe, yt-dlp), and database query
// timings. All metrics are registered via promauto at package init.
package metrics
