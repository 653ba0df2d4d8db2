package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/embedding"
	"github.com/kozaktomas/face-explorer/internal/results"
	"github.com/kozaktomas/face-explorer/internal/searchapi"
)

var searchCmd = &cobra.Command{
	Use:   "search <image-file>",
	Short: "Find photos of a person by face",
	Long: `Find photos of a person in the archive by face similarity.

The image is sent to the embedding server, which detects faces and
computes an embedding for the largest one. The embedding is then used
for a vector similarity search against the archive.

Examples:
  # Search using a photo with a face
  face-explorer search selfie.jpg

  # Use a wider search radius (more, looser matches)
  face-explorer search selfie.jpg --radius 0.85

  # Search with a precomputed embedding instead of an image
  face-explorer search --embedding-file face.json

  # Output as JSON
  face-explorer search selfie.jpg --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Float64("radius", 0, "Search radius (0 = use configured default)")
	searchCmd.Flags().Int("limit", 0, "Maximum number of results (0 = use configured default)")
	searchCmd.Flags().String("embedding-file", "", "JSON file with a precomputed face embedding")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

// searchResult is one match in the JSON output of the search command.
type searchResult struct {
	Filename     string  `json:"filename"`
	ImageURL     string  `json:"image_url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Similarity   float64 `json:"similarity"`
	Outlet       string  `json:"outlet"`
}

// searchOutput is the JSON output structure for the search command.
type searchOutput struct {
	Radius  float64        `json:"radius"`
	Count   int            `json:"count"`
	Results []searchResult `json:"results"`
}

// resolveRadius clamps a requested radius into the configured window,
// falling back to the default when unset.
func resolveRadius(cfg *config.Config, requested float64) float64 {
	t := cfg.Tuning.Search
	if requested == 0 {
		return t.Radius
	}
	if requested < t.RadiusMin {
		return t.RadiusMin
	}
	if requested > t.RadiusMax {
		return t.RadiusMax
	}
	return requested
}

// embedImageFile reads an image from disk and asks the embedding server
// for the largest face's embedding.
func embedImageFile(cfg *config.Config, path string) ([]float32, error) {
	imageData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read image file: %w", err)
	}

	if cfg.Embedding.URL == "" {
		return nil, errors.New("EMBEDDING_URL environment variable is required")
	}

	embedClient := embedding.NewClient(cfg.Embedding.URL)
	vector, err := embedClient.EmbedFace(context.Background(), imageData)
	if err != nil {
		return nil, fmt.Errorf("could not embed face: %w", err)
	}
	return vector, nil
}

// readEmbeddingFile loads a precomputed embedding: either a bare JSON
// array of floats or an object with an "embedding" field.
func readEmbeddingFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read embedding file: %w", err)
	}

	var bare []float32
	if err := json.Unmarshal(data, &bare); err == nil && len(bare) > 0 {
		return bare, nil
	}

	var wrapped struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || len(wrapped.Embedding) == 0 {
		return nil, errors.New("embedding file must contain a JSON array of floats or an object with an \"embedding\" field")
	}
	return wrapped.Embedding, nil
}

// searchByVector runs a similarity search for an embedding and returns
// sorted display items.
func searchByVector(cfg *config.Config, vector []float32, radius float64, limit int) ([]results.Item, error) {
	if cfg.Search.URL == "" {
		return nil, errors.New("FACE_SEARCH_URL environment variable is required")
	}

	searchClient, err := searchapi.NewClient(cfg.Search.URL)
	if err != nil {
		return nil, fmt.Errorf("could not create search client: %w", err)
	}

	if limit <= 0 {
		limit = cfg.Tuning.Search.TopK
	}
	raw, err := searchClient.SearchByFace(searchapi.SearchRequest{
		Embedding:  vector,
		Radius:     radius,
		TopK:       limit,
		Collection: cfg.Tuning.Search.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	items := results.FromSearch(raw)
	results.SortBySimilarity(items)
	return items, nil
}

// searchByImageFile runs the full embed-then-search pipeline for an
// image on disk.
func searchByImageFile(cfg *config.Config, path string, radius float64, limit int) ([]results.Item, error) {
	vector, err := embedImageFile(cfg, path)
	if err != nil {
		return nil, err
	}
	return searchByVector(cfg, vector, radius, limit)
}

func runSearch(cmd *cobra.Command, args []string) error {
	radiusFlag := mustGetFloat64(cmd, "radius")
	limit := mustGetInt(cmd, "limit")
	embeddingFile := mustGetString(cmd, "embedding-file")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	radius := resolveRadius(cfg, radiusFlag)

	var items []results.Item
	var err error
	switch {
	case embeddingFile != "":
		var vector []float32
		if vector, err = readEmbeddingFile(embeddingFile); err == nil {
			items, err = searchByVector(cfg, vector, radius, limit)
		}
	case len(args) == 1:
		items, err = searchByImageFile(cfg, args[0], radius, limit)
	default:
		return errors.New("requires an image-file argument or the --embedding-file flag")
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		out := searchOutput{Radius: radius, Count: len(items), Results: make([]searchResult, 0, len(items))}
		for _, item := range items {
			out.Results = append(out.Results, searchResult{
				Filename:     item.Filename,
				ImageURL:     item.ImageURL,
				ThumbnailURL: item.ThumbnailURL,
				Similarity:   item.Similarity,
				Outlet:       item.Outlet,
			})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	if len(items) == 0 {
		fmt.Println("No matching photos found.")
		return nil
	}

	fmt.Printf("Found %d matching photo(s) (radius %.2f)\n", len(items), radius)

	groups := results.GroupByOutlet(items)
	for _, outlet := range results.OutletsBySimilarity(groups) {
		fmt.Printf("\n%s (%d)\n", outlet, len(groups[outlet]))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  MATCH\tFILENAME\tURL")
		for _, item := range groups[outlet] {
			fmt.Fprintf(w, "  %d%%\t%s\t%s\n", item.Percent(), item.Filename, item.ImageURL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
