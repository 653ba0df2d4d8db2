// Package thumbs implements the thumbnail delivery pipeline: a two tier
// image cache, a bounded fetch queue with retries and a coordinator that
// routes finished thumbnails to display slots.
package thumbs

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ImageCache keeps finished thumbnail bytes in memory with a bounded
// entry count, backed by an unbounded disk tier that survives restarts.
// Disk entries are keyed by the md5 of the source URL so cache files
// stay valid regardless of URL length or characters.
type ImageCache struct {
	mu    sync.Mutex
	mem   map[string][]byte
	order []string // insertion order, oldest first
	limit int
	evict int
	dir   string
}

func NewImageCache(dir string, limit, evict int) (*ImageCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	return &ImageCache{
		mem:   make(map[string][]byte),
		limit: limit,
		evict: evict,
		dir:   dir,
	}, nil
}

// Get returns cached thumbnail bytes for url. A disk hit is promoted
// into the memory tier.
func (c *ImageCache) Get(url string) ([]byte, bool) {
	c.mu.Lock()
	if data, ok := c.mem[url]; ok {
		c.mu.Unlock()
		return data, true
	}
	c.mu.Unlock()

	data, err := os.ReadFile(c.diskPath(url))
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	c.putMemLocked(url, data)
	c.mu.Unlock()
	return data, true
}

// Put stores thumbnail bytes in both tiers. The disk write is best
// effort; a full or read-only disk must not break thumbnail delivery.
func (c *ImageCache) Put(url string, data []byte) {
	c.mu.Lock()
	c.putMemLocked(url, data)
	c.mu.Unlock()

	_ = os.WriteFile(c.diskPath(url), data, 0o644)
}

func (c *ImageCache) putMemLocked(url string, data []byte) {
	if _, ok := c.mem[url]; !ok {
		c.order = append(c.order, url)
	}
	c.mem[url] = data

	if len(c.mem) > c.limit {
		n := c.evict
		if n > len(c.order) {
			n = len(c.order)
		}
		for _, old := range c.order[:n] {
			delete(c.mem, old)
		}
		c.order = c.order[n:]
	}
}

// Len reports the number of entries in the memory tier.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}

func (c *ImageCache) diskPath(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".jpg")
}

// SweepDisk removes disk entries older than maxAge and returns how many
// files were deleted. The disk tier has no automatic expiry; callers
// decide when a sweep is worth it.
func (c *ImageCache) SweepDisk(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("could not read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Clear drops the memory tier and deletes every disk entry.
func (c *ImageCache) Clear() error {
	c.mu.Lock()
	c.mem = make(map[string][]byte)
	c.order = nil
	c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("could not read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("could not remove cache entry: %w", err)
		}
	}
	return nil
}
