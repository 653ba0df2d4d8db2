package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/constants"
	"github.com/kozaktomas/face-explorer/internal/download"
	"github.com/kozaktomas/face-explorer/internal/results"
)

var downloadCmd = &cobra.Command{
	Use:   "download <image-file>",
	Short: "Search by face and download all matching photos",
	Long: `Search the archive by face similarity and download every match
into a local folder. Files are downloaded sequentially; a failed file is
reported and skipped, the rest of the batch continues.

Examples:
  # Download all matches into ./downloads
  face-explorer download selfie.jpg

  # Custom target folder and a wider radius
  face-explorer download selfie.jpg --folder ./anna --radius 0.85

  # Download results saved earlier with 'search --json'
  face-explorer download --results-file matches.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().Float64("radius", 0, "Search radius (0 = use configured default)")
	downloadCmd.Flags().Int("limit", 0, "Maximum number of results (0 = use configured default)")
	downloadCmd.Flags().String("folder", constants.DefaultDownloadFolder, "Target folder for downloaded photos")
	downloadCmd.Flags().String("results-file", "", "JSON file with results from 'search --json'")
}

// readResultsFile loads items from a 'search --json' output file.
func readResultsFile(path string) ([]results.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read results file: %w", err)
	}

	var out searchOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("could not parse results file: %w", err)
	}

	items := make([]results.Item, 0, len(out.Results))
	for _, r := range out.Results {
		items = append(items, results.Item{
			Filename:     r.Filename,
			ImageURL:     r.ImageURL,
			ThumbnailURL: r.ThumbnailURL,
			Similarity:   r.Similarity,
			Outlet:       r.Outlet,
		})
	}
	return items, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	radiusFlag := mustGetFloat64(cmd, "radius")
	limit := mustGetInt(cmd, "limit")
	folder := mustGetString(cmd, "folder")
	resultsFile := mustGetString(cmd, "results-file")

	cfg := config.Load()

	var items []results.Item
	var err error
	switch {
	case resultsFile != "":
		items, err = readResultsFile(resultsFile)
	case len(args) == 1:
		items, err = searchByImageFile(cfg, args[0], resolveRadius(cfg, radiusFlag), limit)
	default:
		return errors.New("requires an image-file argument or the --results-file flag")
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No matching photos found.")
		return nil
	}

	fmt.Printf("Downloading %d photo(s) to %s\n", len(items), folder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling...")
		cancel()
	}()

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Downloading photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	session := download.NewSession(folder)
	summary, err := session.Run(ctx, items, func(ev download.Event) {
		_ = bar.Add(1)
		if ev.Err != nil {
			fmt.Fprintf(os.Stderr, "\nFailed to download %s: %v\n", ev.Filename, ev.Err)
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("\nDone! Downloaded %d photo(s), %d failed.\n", summary.Downloaded, summary.Failed)
	return nil
}
