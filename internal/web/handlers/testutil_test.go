package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/thumbs"
)

// testConfig loads the embedded tuning defaults for handler tests.
func testConfig() *config.Config {
	return config.Load()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testJPEGBytes produces a small valid JPEG payload.
func testJPEGBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.NRGBA{R: 180, G: 120, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("could not encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// multipartBody builds a multipart form with a single file field.
func multipartBody(t *testing.T, fieldValues map[string]string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fieldValues {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("could not write field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		t.Fatalf("could not create form file: %v", err)
	}
	if _, err := part.Write(fileData); err != nil {
		t.Fatalf("could not write file data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("could not close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

// testCoordinator builds a thumbnail pipeline against a temp cache dir.
func testCoordinator(t *testing.T) (*thumbs.Coordinator, *thumbs.ImageCache) {
	t.Helper()
	cache, err := thumbs.NewImageCache(t.TempDir(), 100, 50)
	if err != nil {
		t.Fatalf("could not create cache: %v", err)
	}
	coord := thumbs.NewCoordinator(
		cache,
		thumbs.NewTaskQueue(3),
		thumbs.NewFetcher(2*time.Second, time.Second),
		thumbs.NewSlotTable(),
		thumbs.CoordinatorConfig{MaxAttempts: 2, RetryDelay: 10 * time.Millisecond},
	)
	return coord, cache
}
