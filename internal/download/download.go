// Package download saves matched photos to a local folder, one at a
// time, with collision safe filenames carrying outlet and similarity.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-explorer/internal/results"
)

const copyChunkSize = 8192

// Event reports progress for one item of a download run.
type Event struct {
	Index    int
	Total    int
	Filename string
	Path     string // resolved destination path, collision suffix included
	Err      error
}

// Summary is the outcome of a full download run.
type Summary struct {
	Downloaded int
	Failed     int
	Files      []string
}

// Session downloads a batch of items sequentially. One failed item is
// recorded and the run moves on; a batch never aborts halfway through.
type Session struct {
	client *http.Client
	dir    string
}

func NewSession(dir string) *Session {
	return &Session{
		client: &http.Client{},
		dir:    dir,
	}
}

// FilenameFor builds the download name: outlet prefix in brackets, the
// original base name and the similarity percentage.
func FilenameFor(item results.Item) string {
	ext := filepath.Ext(item.Filename)
	namePart := strings.TrimSuffix(item.Filename, ext)
	if ext == "" {
		ext = ".jpg"
	}

	if item.Outlet != "" && item.Outlet != "Unknown" {
		return fmt.Sprintf("[%s]_%s_%dpct%s", item.Outlet, namePart, item.Percent(), ext)
	}
	return fmt.Sprintf("%s_%dpct%s", namePart, item.Percent(), ext)
}

// uniquePath appends _1, _2, ... until the name is free in dir.
func uniquePath(dir, filename string) string {
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(filename)
	namePart := strings.TrimSuffix(filename, ext)
	for counter := 1; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", namePart, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Run downloads every item into the session folder. onProgress, when
// non-nil, is invoked once per item with the outcome.
func (s *Session) Run(ctx context.Context, items []results.Item, onProgress func(Event)) (*Summary, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create download folder: %w", err)
	}

	summary := &Summary{}
	for i, item := range items {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		path := uniquePath(s.dir, FilenameFor(item))
		err := s.fetchOne(ctx, item.ImageURL, path)

		if err != nil {
			summary.Failed++
		} else {
			summary.Downloaded++
			summary.Files = append(summary.Files, path)
		}
		if onProgress != nil {
			onProgress(Event{Index: i, Total: len(items), Filename: filepath.Base(path), Path: path, Err: err})
		}
	}
	return summary, nil
}

// fetchOne resolves one item to disk. A source that exists as a local
// file is copied; anything else is treated as a URL and downloaded.
func (s *Session) fetchOne(ctx context.Context, source, path string) error {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return copyLocal(source, path)
	}
	return s.downloadOne(ctx, source, path)
}

// copyLocal streams a local file through the same temp-then-rename
// dance the HTTP path uses.
func copyLocal(source, path string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", source, err)
	}
	defer func() { _ = in.Close() }()

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}

	buf := make([]byte, copyChunkSize)
	_, err = io.CopyBuffer(f, in, buf)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not write file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not finalize file: %w", err)
	}
	return nil
}

// downloadOne streams one image to disk. The file is written through a
// temp name and renamed on success so a failed transfer never leaves a
// half written image behind.
func (s *Session) downloadOne(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("could not download %s: unexpected status code %d", url, resp.StatusCode)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}

	buf := make([]byte, copyChunkSize)
	_, err = io.CopyBuffer(f, resp.Body, buf)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not write file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not finalize file: %w", err)
	}
	return nil
}
