package handlers

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/imgutil"
	"github.com/kozaktomas/face-explorer/internal/preview"
	"github.com/kozaktomas/face-explorer/internal/results"
)

// PreviewHandler exposes the single process-wide preview session over
// HTTP. Opening a second session while one is active maps the guard
// errors onto 409 responses.
type PreviewHandler struct {
	config *config.Config
	guard  *preview.ActiveSessionGuard
	loader preview.ImageLoader

	mu      sync.Mutex
	session *preview.Session
	latest  []byte // JPEG of the last delivered image
	index   int
}

// NewPreviewHandler creates a new preview handler
func NewPreviewHandler(cfg *config.Config, guard *preview.ActiveSessionGuard, loader preview.ImageLoader) *PreviewHandler {
	return &PreviewHandler{
		config: cfg,
		guard:  guard,
		loader: loader,
	}
}

type previewItemRequest struct {
	Filename   string  `json:"filename"`
	ImageURL   string  `json:"image_url"`
	Similarity float64 `json:"similarity"`
	Outlet     string  `json:"outlet"`
}

// Open starts a preview session over the posted items.
func (h *PreviewHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []previewItemRequest `json:"items"`
		Index int                  `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items are required")
		return
	}

	items := make([]results.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, results.Item{
			Filename:   it.Filename,
			ImageURL:   it.ImageURL,
			Similarity: it.Similarity,
			Outlet:     it.Outlet,
		})
	}

	cfg := preview.Config{
		CacheSize: h.config.Tuning.Preview.CacheSize,
		CloseWait: time.Duration(h.config.Tuning.Preview.CloseWaitSeconds) * time.Second,
	}

	session, err := preview.Open(h.guard, h.loader, items, req.Index, h.deliver, cfg)
	if err != nil {
		switch {
		case errors.Is(err, preview.ErrSessionActive):
			respondError(w, http.StatusConflict, "a preview session is already open")
		case errors.Is(err, preview.ErrSessionClosing):
			respondError(w, http.StatusConflict, "previous preview session is still closing")
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.mu.Lock()
	h.session = session
	h.latest = nil
	h.mu.Unlock()

	session.Show(r.Context())

	item, idx := session.Current()
	respondJSON(w, http.StatusCreated, map[string]any{
		"index":    idx,
		"filename": item.Filename,
		"total":    len(items),
	})
}

func (h *PreviewHandler) deliver(index int, _ results.Item, img image.Image) {
	data, err := imgutil.EncodeJPEG(img)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.latest = data
	h.index = index
	h.mu.Unlock()
}

func (h *PreviewHandler) activeSession(w http.ResponseWriter) *preview.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		respondError(w, http.StatusNotFound, "no preview session open")
		return nil
	}
	return h.session
}

// Navigate steps the session forward or back. Debounced requests return
// moved=false so clients can tell a refused step from a slow load.
func (h *PreviewHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	session := h.activeSession(w)
	if session == nil {
		return
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var moved bool
	switch req.Direction {
	case "next":
		moved = session.Next(r.Context())
	case "prev":
		moved = session.Prev(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "direction must be next or prev")
		return
	}

	item, idx := session.Current()
	respondJSON(w, http.StatusOK, map[string]any{
		"moved":          moved,
		"index":          idx,
		"filename":       item.Filename,
		"selected":       session.Selected(idx),
		"selected_count": session.SelectedCount(),
	})
}

// Select toggles the selection mark on an item. Without an explicit
// index the current item is toggled, mirroring the preview checkbox.
func (h *PreviewHandler) Select(w http.ResponseWriter, r *http.Request) {
	session := h.activeSession(w)
	if session == nil {
		return
	}

	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	idx := 0
	if req.Index != nil {
		idx = *req.Index
	} else {
		_, idx = session.Current()
	}

	selected, err := session.ToggleSelect(idx)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"index":          idx,
		"selected":       selected,
		"selected_count": session.SelectedCount(),
	})
}

// Selected lists the selected items, shaped so the response can be
// posted straight to the downloads endpoint.
func (h *PreviewHandler) Selected(w http.ResponseWriter, r *http.Request) {
	session := h.activeSession(w)
	if session == nil {
		return
	}

	items := session.SelectedItems()
	out := make([]previewItemRequest, 0, len(items))
	for _, it := range items {
		out = append(out, previewItemRequest{
			Filename:   it.Filename,
			ImageURL:   it.ImageURL,
			Similarity: it.Similarity,
			Outlet:     it.Outlet,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"items": out,
	})
}

// Image serves the most recently loaded preview image.
func (h *PreviewHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	data := h.latest
	h.mu.Unlock()

	if data == nil {
		respondError(w, http.StatusNotFound, "no image loaded yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}

// Close tears the session down and frees the guard.
func (h *PreviewHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.latest = nil
	h.mu.Unlock()

	if session == nil {
		respondError(w, http.StatusNotFound, "no preview session open")
		return
	}

	session.Close()
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
