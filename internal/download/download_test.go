package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-explorer/internal/results"
)

func TestFilenameFor(t *testing.T) {
	tests := []struct {
		name     string
		item     results.Item
		expected string
	}{
		{
			"with outlet",
			results.Item{Filename: "gala.jpg", Similarity: 0.87, Outlet: "Daily News"},
			"[Daily News]_gala_87pct.jpg",
		},
		{
			"unknown outlet",
			results.Item{Filename: "gala.jpg", Similarity: 0.87, Outlet: "Unknown"},
			"gala_87pct.jpg",
		},
		{
			"no extension",
			results.Item{Filename: "gala", Similarity: 0.5, Outlet: ""},
			"gala_50pct.jpg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FilenameFor(tc.item); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestUniquePathCollisions(t *testing.T) {
	dir := t.TempDir()

	first := uniquePath(dir, "photo.jpg")
	if filepath.Base(first) != "photo.jpg" {
		t.Errorf("unexpected first name: %s", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatalf("could not create file: %v", err)
	}

	second := uniquePath(dir, "photo.jpg")
	if filepath.Base(second) != "photo_1.jpg" {
		t.Errorf("unexpected collision name: %s", second)
	}
	if err := os.WriteFile(second, []byte("x"), 0o644); err != nil {
		t.Fatalf("could not create file: %v", err)
	}

	third := uniquePath(dir, "photo.jpg")
	if filepath.Base(third) != "photo_2.jpg" {
		t.Errorf("unexpected second collision name: %s", third)
	}
}

func TestRunDownloadsSequentially(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("image-bytes-for-" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	session := NewSession(dir)

	items := []results.Item{
		{Filename: "a.jpg", ImageURL: server.URL + "/a.jpg", Similarity: 0.9, Outlet: "Daily"},
		{Filename: "b.jpg", ImageURL: server.URL + "/b.jpg", Similarity: 0.8, Outlet: "Daily"},
	}

	var events []Event
	summary, err := session.Run(context.Background(), items, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Downloaded != 2 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 progress events, got %d", len(events))
	}

	data, err := os.ReadFile(filepath.Join(dir, "[Daily]_a_90pct.jpg"))
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != "image-bytes-for-/a.jpg" {
		t.Errorf("unexpected file content: %s", data)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	session := NewSession(dir)

	items := []results.Item{
		{Filename: "good1.jpg", ImageURL: server.URL + "/good1.jpg", Similarity: 0.9},
		{Filename: "bad.jpg", ImageURL: server.URL + "/bad.jpg", Similarity: 0.8},
		{Filename: "good2.jpg", ImageURL: server.URL + "/good2.jpg", Similarity: 0.7},
	}

	summary, err := session.Run(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Downloaded != 2 {
		t.Errorf("expected 2 downloads, got %d", summary.Downloaded)
	}
	if summary.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", summary.Failed)
	}

	// a failed item leaves no partial file behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("could not read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected exactly 2 files, got %d", len(entries))
	}
}

func TestRunSameItemTwiceGetsSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	session := NewSession(dir)

	item := results.Item{Filename: "dup.jpg", ImageURL: server.URL + "/dup.jpg", Similarity: 0.9}
	if _, err := session.Run(context.Background(), []results.Item{item, item}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "dup_90pct.jpg")); err != nil {
		t.Error("first file missing")
	}
	if _, err := os.Stat(filepath.Join(dir, "dup_90pct_1.jpg")); err != nil {
		t.Error("suffixed duplicate missing")
	}
}

func TestRunCopiesLocalFiles(t *testing.T) {
	srcDir := t.TempDir()
	source := filepath.Join(srcDir, "local.jpg")
	if err := os.WriteFile(source, []byte("local-image-bytes"), 0o644); err != nil {
		t.Fatalf("could not create source file: %v", err)
	}

	dir := t.TempDir()
	session := NewSession(dir)

	items := []results.Item{
		{Filename: "local.jpg", ImageURL: source, Similarity: 0.9, Outlet: "Archive"},
	}

	summary, err := session.Run(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Downloaded != 1 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	data, err := os.ReadFile(filepath.Join(dir, "[Archive]_local_90pct.jpg"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(data) != "local-image-bytes" {
		t.Errorf("unexpected file content: %s", data)
	}
	if _, err := os.Stat(source); err != nil {
		t.Error("source file must stay in place after copy")
	}
}

func TestRunStopsWhenCancelledMidBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	session := NewSession(dir)

	items := []results.Item{
		{Filename: "one.jpg", ImageURL: server.URL + "/one.jpg", Similarity: 0.9},
		{Filename: "two.jpg", ImageURL: server.URL + "/two.jpg", Similarity: 0.8},
		{Filename: "three.jpg", ImageURL: server.URL + "/three.jpg", Similarity: 0.7},
	}

	ctx, cancel := context.WithCancel(context.Background())
	summary, err := session.Run(ctx, items, func(e Event) {
		if e.Index == 0 {
			cancel()
		}
	})
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if summary.Downloaded != 1 {
		t.Errorf("expected the batch to stop after 1 download, got %d", summary.Downloaded)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("could not read dir: %v", readErr)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 file after cancellation, got %d", len(entries))
	}
}

func TestRunEventCarriesDestinationPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	session := NewSession(dir)

	item := results.Item{Filename: "p.jpg", ImageURL: server.URL + "/p.jpg", Similarity: 0.9}

	var events []Event
	if _, err := session.Run(context.Background(), []results.Item{item, item}, func(e Event) {
		events = append(events, e)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Path != filepath.Join(dir, "p_90pct.jpg") {
		t.Errorf("unexpected first path: %s", events[0].Path)
	}
	// the collision suffix must be visible in the event
	if events[1].Path != filepath.Join(dir, "p_90pct_1.jpg") {
		t.Errorf("unexpected second path: %s", events[1].Path)
	}
	if events[1].Filename != "p_90pct_1.jpg" {
		t.Errorf("unexpected second filename: %s", events[1].Filename)
	}
}
