package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-explorer/internal/config"
	"github.com/kozaktomas/face-explorer/internal/embedding"
	"github.com/kozaktomas/face-explorer/internal/results"
	"github.com/kozaktomas/face-explorer/internal/searchapi"
)

// maxUploadSize bounds face image uploads (32 MB).
const maxUploadSize = 32 << 20

// SearchHandler handles face similarity search endpoints
type SearchHandler struct {
	config *config.Config
	search *searchapi.Client
	embed  *embedding.Client
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(cfg *config.Config, search *searchapi.Client, embed *embedding.Client) *SearchHandler {
	return &SearchHandler{
		config: cfg,
		search: search,
		embed:  embed,
	}
}

// searchItem is the API shape of one search match.
type searchItem struct {
	Filename     string  `json:"filename"`
	ImageURL     string  `json:"image_url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Similarity   float64 `json:"similarity"`
	Percent      int     `json:"percent"`
	Outlet       string  `json:"outlet"`
}

type searchResponse struct {
	Count   int          `json:"count"`
	Radius  float64      `json:"radius"`
	Results []searchItem `json:"results"`
}

// clampRadius keeps the similarity radius inside the supported window.
func (h *SearchHandler) clampRadius(radius float64) float64 {
	tuning := h.config.Tuning.Search
	if radius == 0 {
		return tuning.Radius
	}
	if radius < tuning.RadiusMin {
		return tuning.RadiusMin
	}
	if radius > tuning.RadiusMax {
		return tuning.RadiusMax
	}
	return radius
}

func (h *SearchHandler) runSearch(w http.ResponseWriter, emb []float32, radius float64) {
	radius = h.clampRadius(radius)
	tuning := h.config.Tuning.Search

	raw, err := h.search.SearchByFace(searchapi.SearchRequest{
		Embedding:  emb,
		Radius:     radius,
		TopK:       tuning.TopK,
		Collection: tuning.Collection,
	})
	if err != nil {
		log.Printf("search failed: %v", err)
		respondError(w, http.StatusBadGateway, "search service error: "+err.Error())
		return
	}

	items := results.FromSearch(raw)
	results.SortBySimilarity(items)

	resp := searchResponse{
		Count:   len(items),
		Radius:  radius,
		Results: make([]searchItem, 0, len(items)),
	}
	for _, it := range items {
		resp.Results = append(resp.Results, searchItem{
			Filename:     it.Filename,
			ImageURL:     it.ImageURL,
			ThumbnailURL: it.ThumbnailURL,
			Similarity:   it.Similarity,
			Percent:      it.Percent(),
			Outlet:       it.Outlet,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// ByImage handles a multipart face image upload: the largest face is
// embedded and searched.
func (h *SearchHandler) ByImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	log.Printf("search by image: %s (%d bytes)", sanitizeForLog(header.Filename), len(data))

	emb, err := h.embed.EmbedFace(r.Context(), data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "no usable face in image: "+err.Error())
		return
	}

	var radius float64
	if v := r.FormValue("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid radius")
			return
		}
	}

	h.runSearch(w, emb, radius)
}

// ByEmbedding handles a precomputed embedding search.
func (h *SearchHandler) ByEmbedding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Embedding []float32 `json:"embedding"`
		Radius    float64   `json:"radius"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	h.runSearch(w, req.Embedding, req.Radius)
}
