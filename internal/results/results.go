// Package results models the matched photos returned by a face search
// and the helpers the result grid and downloader share.
package results

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/face-explorer/internal/searchapi"
)

// Item is one search match, shaped for display and download.
type Item struct {
	Filename     string
	ImageURL     string // full resolution source, for preview and download
	ThumbnailURL string
	Similarity   float64
	Outlet       string
}

// Percent returns the similarity as an integer percentage.
func (it Item) Percent() int {
	return int(it.Similarity * 100)
}

// Label renders the two line grid caption: truncated filename over match percentage.
func (it Item) Label() string {
	return fmt.Sprintf("%s\n%d%% match", TruncateFilename(it.Filename, 14), it.Percent())
}

// FromSearch converts raw API results into display items, skipping
// records with no usable URL at all. The original path wins over the
// processed file path for full resolution access.
func FromSearch(raw []searchapi.Result) []Item {
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		if r.FilePath == "" && r.OriginalPath == "" && r.ThumbnailPath == "" {
			continue
		}

		filename := r.Filename
		if filename == "" {
			filename = filepath.Base(r.FilePath)
		}
		if filename == "" || filename == "." {
			filename = "Unknown"
		}

		imageURL := r.OriginalPath
		if imageURL == "" {
			imageURL = r.FilePath
		}
		if imageURL == "" {
			imageURL = r.ThumbnailPath
		}

		outlet := r.OutletName
		if outlet == "" {
			outlet = "Unknown"
		}

		items = append(items, Item{
			Filename:     filename,
			ImageURL:     imageURL,
			ThumbnailURL: r.ThumbnailPath,
			Similarity:   r.Similarity,
			Outlet:       outlet,
		})
	}
	return items
}

// SortBySimilarity orders items best match first.
func SortBySimilarity(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Similarity > items[j].Similarity
	})
}

// GroupByOutlet buckets items under their normalized outlet name.
// Bucket keys keep the first seen display spelling.
func GroupByOutlet(items []Item) map[string][]Item {
	groups := make(map[string][]Item)
	display := make(map[string]string)

	for _, it := range items {
		key := NormalizeOutlet(it.Outlet)
		if _, ok := display[key]; !ok {
			display[key] = it.Outlet
		}
		groups[display[key]] = append(groups[display[key]], it)
	}
	return groups
}

// OutletsBySimilarity orders group keys so the outlet holding the best
// match comes first. Ties fall back to name order for stable output.
func OutletsBySimilarity(groups map[string][]Item) []string {
	best := func(items []Item) float64 {
		top := 0.0
		for _, it := range items {
			if it.Similarity > top {
				top = it.Similarity
			}
		}
		return top
	}

	outlets := make([]string, 0, len(groups))
	for outlet := range groups {
		outlets = append(outlets, outlet)
	}
	sort.SliceStable(outlets, func(i, j int) bool {
		a, b := best(groups[outlets[i]]), best(groups[outlets[j]])
		if a != b {
			return a > b
		}
		return outlets[i] < outlets[j]
	})
	return outlets
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeOutlet normalizes an outlet name for grouping (lowercase, no
// diacritics, collapsed whitespace).
func NormalizeOutlet(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), " ")
}

// TruncateFilename shortens a filename to maxChars, preserving the
// extension when enough room remains for a meaningful name part.
func TruncateFilename(filename string, maxChars int) string {
	if len(filename) <= maxChars {
		return filename
	}

	if strings.Contains(filename, ".") {
		ext := filepath.Ext(filename)
		namePart := strings.TrimSuffix(filename, ext)
		available := maxChars - len(ext) - 3
		if available > 3 {
			return namePart[:available] + "..." + ext
		}
	}
	return filename[:maxChars-3] + "..."
}
