package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("could not encode test image: %v", err)
	}
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeValid(t *testing.T) {
	data := encodePNG(t, solidImage(10, 10, color.White))

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("unexpected width: %d", img.Bounds().Dx())
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image at all")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := encodePNG(t, solidImage(100, 100, color.White))
	if _, err := Decode(data[:len(data)/2]); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestThumbnailFits(t *testing.T) {
	img := solidImage(400, 200, color.White)

	thumb := Thumbnail(img, 100)
	if thumb.Bounds().Dx() > 100 || thumb.Bounds().Dy() > 100 {
		t.Errorf("thumbnail exceeds bounds: %v", thumb.Bounds())
	}
	// aspect ratio preserved: 400x200 -> 100x50
	if thumb.Bounds().Dx() != 100 || thumb.Bounds().Dy() != 50 {
		t.Errorf("unexpected thumbnail size: %v", thumb.Bounds())
	}
}

func TestWithSimilarityBadge(t *testing.T) {
	img := solidImage(100, 100, color.Black)

	badged := WithSimilarityBadge(img, 0.87)
	if badged.Bounds() != img.Bounds() {
		t.Errorf("badge changed image bounds: %v", badged.Bounds())
	}

	// circle center must carry the badge color, not the black background
	r, g, b, _ := badged.At(100-30+12, 5+12).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Error("badge circle not drawn")
	}

	// original must be untouched
	r, g, b, _ = img.At(100-30+12, 5+12).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("input image was modified")
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder(100)
	if p.Bounds().Dx() != 100 || p.Bounds().Dy() != 100 {
		t.Errorf("unexpected placeholder size: %v", p.Bounds())
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}, "image/png"},
		{"gif", []byte("GIF89a      "), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"bmp", []byte("BM          "), "image/bmp"},
		{"unknown", []byte("hello world!"), "application/octet-stream"},
		{"short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIMEType(tc.data); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data, err := EncodeJPEG(solidImage(20, 20, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if DetectMIMEType(data) != "image/jpeg" {
		t.Error("encoded data is not a jpeg")
	}
}
