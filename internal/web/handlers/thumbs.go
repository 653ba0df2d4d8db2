package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-explorer/internal/thumbs"
)

// ThumbsHandler serves composited grid thumbnails through the load
// coordinator, so HTTP consumers get the same dedup, retry and cache
// behavior the result grid does.
type ThumbsHandler struct {
	coordinator *thumbs.Coordinator
	cache       *thumbs.ImageCache
}

// NewThumbsHandler creates a new thumbnail handler
func NewThumbsHandler(coordinator *thumbs.Coordinator, cache *thumbs.ImageCache) *ThumbsHandler {
	return &ThumbsHandler{
		coordinator: coordinator,
		cache:       cache,
	}
}

// Get returns the badged thumbnail for ?url=...&similarity=...
func (h *ThumbsHandler) Get(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		respondError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	similarity := 0.0
	if v := r.URL.Query().Get("similarity"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			respondError(w, http.StatusBadRequest, "similarity must be between 0 and 1")
			return
		}
		similarity = parsed
	}

	// one-shot slot: freed when the handler returns, which also drops
	// the delivery if the client has gone away by then
	slot := h.coordinator.Slots().Alloc()
	defer h.coordinator.Slots().Free(slot)

	done := make(chan []byte, 1)
	h.coordinator.Load(url, similarity, slot, func(_ thumbs.SlotID, icon []byte) {
		done <- icon
	})

	select {
	case icon := <-done:
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(icon)
	case <-r.Context().Done():
	}
}

// CacheStats reports memory tier occupancy and in-flight loads.
func (h *ThumbsHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{
		"memory_entries": h.cache.Len(),
		"inflight":       h.coordinator.InflightCount(),
	})
}

// CacheSweep removes disk entries older than ?max_age_hours (default 7 days).
func (h *ThumbsHandler) CacheSweep(w http.ResponseWriter, r *http.Request) {
	maxAge := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("max_age_hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			respondError(w, http.StatusBadRequest, "max_age_hours must be a positive integer")
			return
		}
		maxAge = time.Duration(hours) * time.Hour
	}

	removed, err := h.cache.SweepDisk(maxAge)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sweep failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// CacheClear wipes both cache tiers.
func (h *ThumbsHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(); err != nil {
		respondError(w, http.StatusInternalServerError, "clear failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
