package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-explorer/internal/embedding"
	"github.com/kozaktomas/face-explorer/internal/searchapi"
)

func setupSearchHandler(t *testing.T, searchFn, embedFn http.HandlerFunc) *SearchHandler {
	t.Helper()

	searchServer := httptest.NewServer(searchFn)
	t.Cleanup(searchServer.Close)
	embedServer := httptest.NewServer(embedFn)
	t.Cleanup(embedServer.Close)

	searchClient, err := searchapi.NewClient(searchServer.URL)
	if err != nil {
		t.Fatalf("could not create search client: %v", err)
	}
	return NewSearchHandler(testConfig(), searchClient, embedding.NewClient(embedServer.URL))
}

func embedOneFace(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(embedding.FaceResponse{
		FacesCount: 1,
		Faces: []embedding.Face{
			{FaceIndex: 0, Embedding: []float32{0.1, 0.2, 0.3}, BBox: []float64{0, 0, 50, 50}, DetScore: 0.95},
		},
	})
}

func TestSearchByImage(t *testing.T) {
	var gotRadius float64
	var gotCollection string
	handler := setupSearchHandler(t,
		func(w http.ResponseWriter, r *http.Request) {
			var req searchapi.SearchRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotRadius = req.Radius
			gotCollection = req.Collection
			_, _ = w.Write([]byte(`{"results":[
				{"filename":"a.jpg","thumbnail_path":"http://x/a.jpg","file_path":"http://x/full/a.jpg","similarity":0.8,"outlet_name":"Daily"},
				{"filename":"b.jpg","thumbnail_path":"http://x/b.jpg","file_path":"http://x/full/b.jpg","similarity":0.95,"outlet_name":"Weekly"}
			]}`))
		},
		embedOneFace,
	)

	body, contentType := multipartBody(t, nil, testJPEGBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	handler.ByImage(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("could not unmarshal response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 results, got %d", resp.Count)
	}
	// sorted best match first
	if resp.Results[0].Filename != "b.jpg" {
		t.Errorf("results not sorted by similarity: %+v", resp.Results)
	}
	if resp.Results[0].Percent != 95 {
		t.Errorf("unexpected percent: %d", resp.Results[0].Percent)
	}
	if gotRadius != 0.70 {
		t.Errorf("expected default radius 0.70, got %f", gotRadius)
	}
	if gotCollection != "face_embeddings" {
		t.Errorf("unexpected collection: %s", gotCollection)
	}
}

func TestSearchByImageNoFace(t *testing.T) {
	handler := setupSearchHandler(t,
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("search should not be called when no face is found")
		},
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(embedding.FaceResponse{FacesCount: 0})
		},
	)

	body, contentType := multipartBody(t, nil, testJPEGBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	handler.ByImage(recorder, req)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", recorder.Code)
	}
}

func TestSearchByEmbeddingClampsRadius(t *testing.T) {
	tests := []struct {
		name     string
		radius   float64
		expected float64
	}{
		{"below window", 0.5, 0.70},
		{"inside window", 0.8, 0.8},
		{"above window", 0.99, 0.90},
		{"zero means default", 0, 0.70},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotRadius float64
			handler := setupSearchHandler(t,
				func(w http.ResponseWriter, r *http.Request) {
					var req searchapi.SearchRequest
					_ = json.NewDecoder(r.Body).Decode(&req)
					gotRadius = req.Radius
					_, _ = w.Write([]byte(`{"results":[]}`))
				},
				embedOneFace,
			)

			payload, _ := json.Marshal(map[string]any{
				"embedding": []float32{0.1, 0.2},
				"radius":    tc.radius,
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/search/embedding", bytes.NewReader(payload))
			recorder := httptest.NewRecorder()

			handler.ByEmbedding(recorder, req)

			if recorder.Code != http.StatusOK {
				t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
			}
			if gotRadius != tc.expected {
				t.Errorf("expected radius %f, got %f", tc.expected, gotRadius)
			}
		})
	}
}

func TestSearchByEmbeddingMissingEmbedding(t *testing.T) {
	handler := setupSearchHandler(t,
		func(w http.ResponseWriter, r *http.Request) {},
		embedOneFace,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/embedding", bytes.NewReader([]byte(`{}`)))
	recorder := httptest.NewRecorder()

	handler.ByEmbedding(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

func TestSearchServiceDown(t *testing.T) {
	handler := setupSearchHandler(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"index offline"}`))
		},
		embedOneFace,
	)

	payload, _ := json.Marshal(map[string]any{"embedding": []float32{0.1}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/embedding", bytes.NewReader(payload))
	recorder := httptest.NewRecorder()

	handler.ByEmbedding(recorder, req)

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", recorder.Code)
	}
}
