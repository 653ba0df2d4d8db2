package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-explorer/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	searchHandler := handlers.NewSearchHandler(s.config, s.deps.Search, s.deps.Embed)
	thumbsHandler := handlers.NewThumbsHandler(s.deps.Coordinator, s.deps.Cache)
	previewHandler := handlers.NewPreviewHandler(s.config, s.deps.Guard, s.deps.Loader)
	downloadsHandler := handlers.NewDownloadsHandler(s.jobManager)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Face search
		r.Post("/search", searchHandler.ByImage)
		r.Post("/search/embedding", searchHandler.ByEmbedding)

		// Thumbnails
		r.Get("/thumb", thumbsHandler.Get)
		r.Get("/cache/stats", thumbsHandler.CacheStats)
		r.Post("/cache/sweep", thumbsHandler.CacheSweep)
		r.Delete("/cache", thumbsHandler.CacheClear)

		// Preview session
		r.Post("/preview", previewHandler.Open)
		r.Post("/preview/navigate", previewHandler.Navigate)
		r.Post("/preview/select", previewHandler.Select)
		r.Get("/preview/selected", previewHandler.Selected)
		r.Get("/preview/image", previewHandler.Image)
		r.Delete("/preview", previewHandler.Close)

		// Downloads (long-running operations)
		r.Post("/downloads", downloadsHandler.Start)
		r.Get("/downloads/{jobId}", downloadsHandler.Status)
		r.Get("/downloads/{jobId}/events", downloadsHandler.Events)
		r.Delete("/downloads/{jobId}", downloadsHandler.Cancel)
	})
}
