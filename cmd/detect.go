package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-explorer/internal/capture"
	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/embedding"
	"github.com/kozaktomas/face-explorer/internal/imgutil"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image-file>",
	Short: "Detect the most prominent face in an image",
	Long: `Detect faces in an image and extract a crop of the largest one.

The crop is scaled to the configured capture size and saved as a JPEG,
ready to be used as a search input.

Examples:
  # Detect and save the face crop
  face-explorer detect frame.jpg --output face.jpg

  # Watch a directory and detect faces in the newest frame
  face-explorer detect --watch ./frames`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("output", "face.jpg", "Path for the extracted face crop")
	detectCmd.Flags().String("watch", "", "Watch a directory of frames instead of a single file")
}

// dirFrameSource serves the most recently modified image file in a
// directory as the current frame. Screen or camera grabbers that dump
// frames to disk plug in this way.
type dirFrameSource struct {
	dir string
}

func (s *dirFrameSource) Frame(ctx context.Context) (image.Image, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not read frame directory: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = entry.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return nil, errors.New("no frames in directory")
	}

	data, err := os.ReadFile(filepath.Join(s.dir, newest))
	if err != nil {
		return nil, fmt.Errorf("could not read frame: %w", err)
	}
	return imgutil.Decode(data)
}

// newCaptureCoordinator builds a capture coordinator against the
// configured embedding server.
func newCaptureCoordinator(cfg *config.Config, source capture.FrameSource) (*capture.Coordinator, error) {
	if cfg.Embedding.URL == "" {
		return nil, errors.New("EMBEDDING_URL environment variable is required")
	}
	t := cfg.Tuning.Capture
	return capture.NewCoordinator(source, embedding.NewClient(cfg.Embedding.URL), capture.Config{
		Interval:      time.Duration(t.IntervalMS) * time.Millisecond,
		DetectMaxSize: t.DetectMaxSize,
		CropSize:      t.FaceCropSize,
	}), nil
}

func saveCrop(det *capture.Detection, path string) error {
	data, err := imgutil.EncodeJPEG(det.Crop)
	if err != nil {
		return fmt.Errorf("could not encode face crop: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write face crop: %w", err)
	}
	return nil
}

func runDetectWatch(cfg *config.Config, dir, output string) error {
	coordinator, err := newCaptureCoordinator(cfg, &dirFrameSource{dir: dir})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	go coordinator.Run(ctx)

	fmt.Printf("Watching %s for frames. Press Ctrl+C to stop.\n", dir)
	for {
		select {
		case <-ctx.Done():
			sampled, dropped, noFace := coordinator.Stats()
			fmt.Printf("\nSampled %d frame(s), dropped %d tick(s), %d without a face.\n", sampled, dropped, noFace)
			return nil
		case det := <-coordinator.Events():
			if err := saveCrop(&det, output); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			fmt.Printf("Face detected (score %.2f), crop saved to %s\n", det.Face.DetScore, output)
		}
	}
}

func runDetect(cmd *cobra.Command, args []string) error {
	output := mustGetString(cmd, "output")
	watchDir := mustGetString(cmd, "watch")

	cfg := config.Load()

	if watchDir != "" {
		return runDetectWatch(cfg, watchDir, output)
	}

	if len(args) != 1 {
		return errors.New("requires an image-file argument or the --watch flag")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read image file: %w", err)
	}
	frame, err := imgutil.Decode(data)
	if err != nil {
		return fmt.Errorf("could not decode image: %w", err)
	}

	coordinator, err := newCaptureCoordinator(cfg, nil)
	if err != nil {
		return err
	}

	det, err := coordinator.DetectOnce(context.Background(), frame)
	if err != nil {
		if errors.Is(err, capture.ErrNoFace) {
			return errors.New("no face detected in the image")
		}
		return fmt.Errorf("detection failed: %w", err)
	}

	if err := saveCrop(det, output); err != nil {
		return err
	}

	fmt.Printf("Face detected (score %.2f), crop saved to %s\n", det.Face.DetScore, output)
	return nil
}
