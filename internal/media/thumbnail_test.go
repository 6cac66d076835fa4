package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeTestImage(t *testing.T, width, height int, asPNG bool) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	if asPNG {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeThumb(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumbnail is not valid JPEG: %v", err)
	}
	return img
}

func TestMakeResizesWideFrame(t *testing.T) {
	maker := NewThumbnailMaker()

	thumb, err := maker.Make(encodeTestImage(t, 1280, 720, false))
	if err != nil {
		t.Fatalf("Make() error: %v", err)
	}

	img := decodeThumb(t, thumb)
	if img.Bounds().Dx() != 320 {
		t.Errorf("thumbnail width = %d, want 320", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 180 {
		t.Errorf("thumbnail height = %d, want 180 (aspect preserved)", img.Bounds().Dy())
	}
}

func TestMakeKeepsNarrowFrame(t *testing.T) {
	maker := NewThumbnailMaker()

	thumb, err := maker.Make(encodeTestImage(t, 160, 90, false))
	if err != nil {
		t.Fatalf("Make() error: %v", err)
	}

	img := decodeThumb(t, thumb)
	if img.Bounds().Dx() != 160 {
		t.Errorf("thumbnail width = %d, want 160 (no upscaling)", img.Bounds().Dx())
	}
}

func TestMakeAcceptsPNGFrames(t *testing.T) {
	maker := NewThumbnailMaker()

	thumb, err := maker.Make(encodeTestImage(t, 640, 480, true))
	if err != nil {
		t.Fatalf("Make() error for PNG frame: %v", err)
	}
	decodeThumb(t, thumb)
}

func TestMakeRejectsGarbage(t *testing.T) {
	maker := NewThumbnailMaker()

	if _, err := maker.Make([]byte("not an image")); err == nil {
		t.Error("Make() accepted garbage input")
	}
}
