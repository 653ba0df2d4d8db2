// Package imgutil decodes, scales and annotates photo thumbnails.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// register decoders for the formats the photo feeds serve
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

const jpegQuality = 85

// Decode parses raw image bytes in any registered format.
// A nil error guarantees a usable image; callers rely on this to
// reject truncated or bogus HTTP responses.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}
	return img, nil
}

// Thumbnail scales img to fit within size x size, preserving aspect ratio.
func Thumbnail(img image.Image, size int) image.Image {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// EncodeJPEG serializes img as a JPEG suitable for the disk cache.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("could not encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DetectMIMEType sniffs the image format from magic bytes.
func DetectMIMEType(data []byte) string {
	if len(data) < 12 {
		return "application/octet-stream"
	}

	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	case bytes.HasPrefix(data, []byte("BM")):
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// ExtensionForMIME maps a sniffed MIME type to a filename extension.
func ExtensionForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
