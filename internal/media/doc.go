// Package media turns ffmpeg poster frames into JPEG thumbnails for the
// fetch API.
package media
