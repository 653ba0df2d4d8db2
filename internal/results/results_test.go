package results

import (
	"testing"

	"github.com/kozaktomas/face-explorer/internal/searchapi"
)

func TestFromSearch(t *testing.T) {
	raw := []searchapi.Result{
		{
			Filename:      "gala.jpg",
			OriginalPath:  "http://cdn/orig/gala.jpg",
			FilePath:      "http://cdn/proc/gala.jpg",
			ThumbnailPath: "http://cdn/thumb/gala.jpg",
			Similarity:    0.93,
			OutletName:    "Daily News",
		},
		{
			FilePath:   "http://cdn/proc/concert.jpg",
			Similarity: 0.81,
		},
		{
			// no URL at all, must be skipped
			Filename:   "ghost.jpg",
			Similarity: 0.99,
		},
	}

	items := FromSearch(raw)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ImageURL != "http://cdn/orig/gala.jpg" {
		t.Errorf("original path should win: %s", first.ImageURL)
	}
	if first.Outlet != "Daily News" {
		t.Errorf("unexpected outlet: %s", first.Outlet)
	}

	second := items[1]
	if second.Filename != "concert.jpg" {
		t.Errorf("filename should fall back to file path base: %s", second.Filename)
	}
	if second.Outlet != "Unknown" {
		t.Errorf("missing outlet should read Unknown: %s", second.Outlet)
	}
	if second.ImageURL != "http://cdn/proc/concert.jpg" {
		t.Errorf("unexpected image URL: %s", second.ImageURL)
	}
}

func TestItemPercentAndLabel(t *testing.T) {
	it := Item{Filename: "short.jpg", Similarity: 0.876}
	if it.Percent() != 87 {
		t.Errorf("expected 87, got %d", it.Percent())
	}
	if it.Label() != "short.jpg\n87% match" {
		t.Errorf("unexpected label: %q", it.Label())
	}
}

func TestSortBySimilarity(t *testing.T) {
	items := []Item{
		{Filename: "b.jpg", Similarity: 0.5},
		{Filename: "a.jpg", Similarity: 0.9},
		{Filename: "c.jpg", Similarity: 0.7},
	}
	SortBySimilarity(items)

	if items[0].Filename != "a.jpg" || items[2].Filename != "b.jpg" {
		t.Errorf("unexpected order: %v", items)
	}
}

func TestGroupByOutlet(t *testing.T) {
	items := []Item{
		{Filename: "1.jpg", Outlet: "Daily News"},
		{Filename: "2.jpg", Outlet: "daily  news"},
		{Filename: "3.jpg", Outlet: "Týden"},
		{Filename: "4.jpg", Outlet: "tyden"},
	}

	groups := GroupByOutlet(items)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(groups), groups)
	}
	if len(groups["Daily News"]) != 2 {
		t.Errorf("expected both daily news spellings in one bucket")
	}
	if len(groups["Týden"]) != 2 {
		t.Errorf("expected diacritic variants in one bucket")
	}
}

func TestRemoveDiacritics(t *testing.T) {
	if got := RemoveDiacritics("Jiří Čermák"); got != "Jiri Cermak" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestTruncateFilename(t *testing.T) {
	tests := []struct {
		in       string
		max      int
		expected string
	}{
		{"short.jpg", 14, "short.jpg"},
		{"very_long_photo_name.jpg", 14, "very_lo....jpg"},
		{"no_extension_long_name", 14, "no_extensio..."},
		{"x.verylongextension", 14, "x.verylonge..."},
	}

	for _, tc := range tests {
		if got := TruncateFilename(tc.in, tc.max); got != tc.expected {
			t.Errorf("TruncateFilename(%q, %d) = %q, expected %q", tc.in, tc.max, got, tc.expected)
		}
	}
}

func TestOutletsBySimilarity(t *testing.T) {
	groups := GroupByOutlet([]Item{
		{Filename: "a.jpg", Similarity: 0.55, Outlet: "Alpha Press"},
		{Filename: "b.jpg", Similarity: 0.91, Outlet: "Beta Daily"},
		{Filename: "c.jpg", Similarity: 0.72, Outlet: "Alpha Press"},
		{Filename: "d.jpg", Similarity: 0.88, Outlet: "Gamma Wire"},
	})

	got := OutletsBySimilarity(groups)
	want := []string{"Beta Daily", "Gamma Wire", "Alpha Press"}
	if len(got) != len(want) {
		t.Fatalf("expected %d outlets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
