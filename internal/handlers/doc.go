// Package handlers provides the HTTP handlers for the video fetcher API.
//
// It includes handlers for:
//   - Submitting fetch requests and browsing the fetch history
//   - Downloading stored videos and thumbnails
//   - Health checks, readiness, version and stats
package handlers
