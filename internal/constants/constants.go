// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Web server constants
const (
	// EventChannelBuffer is the buffer size for per-listener job event channels
	EventChannelBuffer = 100

	// RequestTimeout is the per-request timeout applied by the router
	RequestTimeout = 5 * time.Minute

	// ShutdownTimeout is how long a graceful shutdown may take
	ShutdownTimeout = 10 * time.Second
)

// Thumbnail constants
const (
	// ThumbnailSize is the edge length of grid thumbnails in pixels
	ThumbnailSize = 100
)

// Download constants
const (
	// DefaultDownloadFolder is used when no target folder is given
	DefaultDownloadFolder = "downloads"
)
