// Package downloader wraps the yt-dlp binary for fetching videos from
// supported sites (YouTube, TikTok, VK and others) into a local directory.
// Invocations are bounded by the caller's context and report exit status and
// captured stderr explicitly.
package downloader
