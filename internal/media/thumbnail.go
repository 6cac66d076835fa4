package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	thumbnailWidth   = 320
	thumbnailQuality = 85
)

// ThumbnailMaker converts poster frames into small JPEG thumbnails.
type ThumbnailMaker struct {
	width   int
	quality int
}

// NewThumbnailMaker creates a ThumbnailMaker with the default dimensions.
func NewThumbnailMaker() *ThumbnailMaker {
	return &ThumbnailMaker{
		width:   thumbnailWidth,
		quality: thumbnailQuality,
	}
}

// Make decodes a poster frame and returns a resized JPEG thumbnail.
// Frames narrower than the thumbnail width are re-encoded without upscaling.
func (t *ThumbnailMaker) Make(frame []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode poster frame: %w", err)
	}

	if img.Bounds().Dx() > t.width {
		// Height 0 preserves aspect ratio
		img = imaging.Resize(img, t.width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}
