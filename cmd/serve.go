package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/constants"
	"github.com/kozaktomas/face-explorer/internal/embedding"
	"github.com/kozaktomas/face-explorer/internal/preview"
	"github.com/kozaktomas/face-explorer/internal/searchapi"
	"github.com/kozaktomas/face-explorer/internal/thumbs"
	"github.com/kozaktomas/face-explorer/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Explorer web server.
The web server exposes face search, thumbnail loading, preview
navigation and batch downloads over an HTTP API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// buildPipeline assembles the thumbnail pipeline and preview support
// from the tuning configuration.
func buildPipeline(cfg *config.Config) (web.Deps, error) {
	t := cfg.Tuning

	cache, err := thumbs.NewImageCache(cfg.Cache.Dir, t.Thumbs.MemoryLimit, t.Thumbs.MemoryEvict)
	if err != nil {
		return web.Deps{}, fmt.Errorf("could not create thumbnail cache: %w", err)
	}

	fetcher := thumbs.NewFetcher(
		time.Duration(t.Thumbs.BaseTimeoutSeconds)*time.Second,
		time.Duration(t.Thumbs.TimeoutStepSeconds)*time.Second,
	)
	queue := thumbs.NewTaskQueue(t.Thumbs.MaxConcurrent)
	coordinator := thumbs.NewCoordinator(cache, queue, fetcher, thumbs.NewSlotTable(), thumbs.CoordinatorConfig{
		MaxAttempts: t.Thumbs.MaxAttempts,
		RetryDelay:  time.Duration(t.Thumbs.RetryDelaySeconds) * time.Second,
	})

	searchClient, err := searchapi.NewClient(cfg.Search.URL)
	if err != nil {
		return web.Deps{}, fmt.Errorf("could not create search client: %w", err)
	}

	return web.Deps{
		Search:      searchClient,
		Embed:       embedding.NewClient(cfg.Embedding.URL),
		Coordinator: coordinator,
		Cache:       cache,
		Guard:       preview.NewActiveSessionGuard(),
		Loader:      preview.LoaderFunc(fetcher.FetchFull),
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Search.URL == "" {
		return errors.New("FACE_SEARCH_URL environment variable is required")
	}
	if cfg.Embedding.URL == "" {
		return errors.New("EMBEDDING_URL environment variable is required")
	}

	deps, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Explorer on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
