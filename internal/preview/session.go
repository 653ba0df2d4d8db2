package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-explorer/internal/results"
)

// ErrNoItems is reported when a session is opened over an empty result set.
var ErrNoItems = errors.New("preview requires at least one item")

// ImageLoader fetches a full resolution image by URL.
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// LoaderFunc adapts a function to the ImageLoader interface.
type LoaderFunc func(ctx context.Context, url string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

// DeliverFunc receives a loaded preview image for the item at index.
type DeliverFunc func(index int, item results.Item, img image.Image)

type Config struct {
	CacheSize int
	CloseWait time.Duration
}

// Session is one preview pass over a result set. Navigation is
// debounced discretely: while an image load is in flight, Next and Prev
// return false instead of queueing, so holding an arrow key never
// builds a burst of pending jumps. Loaded images go into a small
// insertion-order cache so stepping back is instant.
type Session struct {
	guard   *ActiveSessionGuard
	loader  ImageLoader
	deliver DeliverFunc
	items   []results.Item
	cfg     Config

	mu         sync.Mutex
	index      int
	loading    bool
	closing    bool
	selected   map[int]bool
	cache      map[string]image.Image
	cacheOrder []string

	inflight sync.WaitGroup
}

// Open acquires the process-wide guard and starts a session at startIndex.
func Open(guard *ActiveSessionGuard, loader ImageLoader, items []results.Item, startIndex int, deliver DeliverFunc, cfg Config) (*Session, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if err := guard.Acquire(); err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10
	}
	if cfg.CloseWait <= 0 {
		cfg.CloseWait = 3 * time.Second
	}
	if startIndex < 0 || startIndex >= len(items) {
		startIndex = 0
	}

	return &Session{
		guard:    guard,
		loader:   loader,
		deliver:  deliver,
		items:    items,
		cfg:      cfg,
		index:    startIndex,
		selected: make(map[int]bool),
		cache:    make(map[string]image.Image),
	}, nil
}

// Current returns the item the session points at.
func (s *Session) Current() (results.Item, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[s.index], s.index
}

// ToggleSelect flips the selection mark on the item at index and
// reports the new state. Selection survives navigation; the selected
// set feeds a batch download.
func (s *Session) ToggleSelect(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return false, fmt.Errorf("index %d out of range", index)
	}
	if s.selected[index] {
		delete(s.selected, index)
		return false, nil
	}
	s.selected[index] = true
	return true, nil
}

// Selected reports whether the item at index carries a selection mark.
func (s *Session) Selected(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[index]
}

// SelectedCount returns how many items are currently selected.
func (s *Session) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

// SelectedItems returns the selected items in result order.
func (s *Session) SelectedItems() []results.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]int, 0, len(s.selected))
	for idx := range s.selected {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	items := make([]results.Item, 0, len(indices))
	for _, idx := range indices {
		items = append(items, s.items[idx])
	}
	return items
}

// Show loads and delivers the current item. Returns false when the
// request was debounced or the session is closing.
func (s *Session) Show(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLoadLocked(ctx, s.index)
}

// Next advances to the following item and loads it.
func (s *Session) Next(ctx context.Context) bool {
	return s.step(ctx, 1)
}

// Prev steps back to the previous item and loads it.
func (s *Session) Prev(ctx context.Context) bool {
	return s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading || s.closing {
		return false
	}
	next := s.index + delta
	if next < 0 || next >= len(s.items) {
		return false
	}
	s.index = next
	return s.startLoadLocked(ctx, next)
}

func (s *Session) startLoadLocked(ctx context.Context, idx int) bool {
	if s.loading || s.closing {
		return false
	}
	item := s.items[idx]

	if img, ok := s.cache[item.ImageURL]; ok {
		// synchronous delivery keeps cached navigation instant
		s.deliver(idx, item, img)
		return true
	}

	s.loading = true
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		img, err := s.loader.Load(ctx, item.ImageURL)

		s.mu.Lock()
		s.loading = false
		if s.closing {
			// session died while the image was in flight; drop it
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.mu.Unlock()
			return
		}
		s.putCacheLocked(item.ImageURL, img)
		stale := idx != s.index
		s.mu.Unlock()

		if !stale {
			s.deliver(idx, item, img)
		}
	}()
	return true
}

func (s *Session) putCacheLocked(url string, img image.Image) {
	if _, ok := s.cache[url]; ok {
		return
	}
	s.cache[url] = img
	s.cacheOrder = append(s.cacheOrder, url)
	if len(s.cacheOrder) > s.cfg.CacheSize {
		oldest := s.cacheOrder[0]
		s.cacheOrder = s.cacheOrder[1:]
		delete(s.cache, oldest)
	}
}

// CacheLen reports how many images the session cache holds.
func (s *Session) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Close refuses further navigation immediately, waits up to the
// configured bound for the in-flight load to land and then releases the
// guard. A load that outlives the bound finishes in the background and
// its result is dropped at delivery time.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	s.mu.Unlock()

	s.guard.BeginClose()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.CloseWait):
	}

	s.guard.Release()
}
