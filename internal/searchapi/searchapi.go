// Package searchapi talks to the face similarity search service.
package searchapi

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Client represents a client for the face search API
type Client struct {
	Url       string
	parsedURL *url.URL
}

// NewClient creates a new face search client
func NewClient(rawURL string) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search API URL: %w", err)
	}
	return &Client{Url: rawURL, parsedURL: parsed}, nil
}

// resolveURL builds a full URL from the base API URL and the given path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// SearchRequest is the payload for a search-by-face call.
type SearchRequest struct {
	Embedding  []float32 `json:"embedding"`
	Radius     float64   `json:"radius"`
	TopK       int       `json:"top_k"`
	Collection string    `json:"collection_name"`
}

// Result is one matched photo returned by the search service.
type Result struct {
	Filename      string  `json:"filename"`
	FilePath      string  `json:"file_path"`
	OriginalPath  string  `json:"original_path"`
	ThumbnailPath string  `json:"thumbnail_path"`
	Similarity    float64 `json:"similarity"`
	OutletName    string  `json:"outlet_name"`
}

// resultEnvelope tolerates the three response shapes the service is known
// to produce: {"data": [...]}, {"results": [...]} and a bare array.
type resultEnvelope struct {
	results []Result
}

func (e *resultEnvelope) UnmarshalJSON(data []byte) error {
	var bare []Result
	if err := json.Unmarshal(data, &bare); err == nil {
		e.results = bare
		return nil
	}

	var wrapped struct {
		Data    []Result `json:"data"`
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("unmarshal search response: %w", err)
	}
	if wrapped.Data != nil {
		e.results = wrapped.Data
	} else {
		e.results = wrapped.Results
	}
	return nil
}

// SearchByFace runs a similarity search for the given face embedding.
func (c *Client) SearchByFace(req SearchRequest) ([]Result, error) {
	envelope, err := doPostJSON[resultEnvelope](c, "faces/search-by-face", req)
	if err != nil {
		return nil, err
	}
	return envelope.results, nil
}
