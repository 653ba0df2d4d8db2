package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/thumbs"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Thumbnail cache management commands",
	Long:  `Commands for inspecting and cleaning the on-disk thumbnail cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show disk cache statistics",
	RunE:  runCacheStats,
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove old entries from the disk cache",
	RunE:  runCacheSweep,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached thumbnails",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheSweepCmd.Flags().Int("max-age-days", 7, "Delete entries older than this many days")
}

// openCache opens the on-disk cache at the configured directory. The
// memory tier limits don't matter for one-shot CLI operations.
func openCache(cfg *config.Config) (*thumbs.ImageCache, error) {
	cache, err := thumbs.NewImageCache(cfg.Cache.Dir, cfg.Tuning.Thumbs.MemoryLimit, cfg.Tuning.Thumbs.MemoryEvict)
	if err != nil {
		return nil, fmt.Errorf("could not open cache: %w", err)
	}
	return cache, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	entries, err := os.ReadDir(cfg.Cache.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Cache directory %s does not exist yet.\n", cfg.Cache.Dir)
			return nil
		}
		return fmt.Errorf("could not read cache directory: %w", err)
	}

	count := 0
	var totalBytes int64
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		totalBytes += info.Size()
	}

	fmt.Printf("Cache directory: %s\n", cfg.Cache.Dir)
	fmt.Printf("Entries:         %d\n", count)
	fmt.Printf("Total size:      %.1f MB\n", float64(totalBytes)/(1024*1024))
	return nil
}

func runCacheSweep(cmd *cobra.Command, args []string) error {
	maxAgeDays := mustGetInt(cmd, "max-age-days")

	cfg := config.Load()
	cache, err := openCache(cfg)
	if err != nil {
		return err
	}

	removed, err := cache.SweepDisk(time.Duration(maxAgeDays) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("Removed %d entry(ies) older than %d day(s).\n", removed, maxAgeDays)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cache, err := openCache(cfg)
	if err != nil {
		return err
	}

	if err := cache.Clear(); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	fmt.Println("Cache cleared.")
	return nil
}
