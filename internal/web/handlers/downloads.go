package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-explorer/internal/constants"
	"github.com/kozaktomas/face-explorer/internal/download"
	"github.com/kozaktomas/face-explorer/internal/results"
)

// DownloadsHandler handles batch download endpoints
type DownloadsHandler struct {
	jobManager *JobManager
}

// NewDownloadsHandler creates a new downloads handler
func NewDownloadsHandler(jm *JobManager) *DownloadsHandler {
	return &DownloadsHandler{jobManager: jm}
}

// downloadItemRequest mirrors the search result fields the downloader needs.
type downloadItemRequest struct {
	Filename   string  `json:"filename"`
	ImageURL   string  `json:"image_url"`
	Similarity float64 `json:"similarity"`
	Outlet     string  `json:"outlet"`
}

// StartRequest represents a download start request
type StartRequest struct {
	Folder string                `json:"folder"`
	Items  []downloadItemRequest `json:"items"`
}

// Start launches a new async download job.
func (h *DownloadsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items are required")
		return
	}
	if req.Folder == "" {
		req.Folder = constants.DefaultDownloadFolder
	}

	items := make([]results.Item, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ImageURL == "" {
			respondError(w, http.StatusBadRequest, "every item needs an image_url")
			return
		}
		items = append(items, results.Item{
			Filename:   it.Filename,
			ImageURL:   it.ImageURL,
			Similarity: it.Similarity,
			Outlet:     it.Outlet,
		})
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID, req.Folder, len(items))

	ctx, cancel := context.WithCancel(context.Background())
	job.SetCancel(cancel)

	go h.runJob(ctx, job, items)

	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (h *DownloadsHandler) runJob(ctx context.Context, job *DownloadJob, items []results.Item) {
	job.SetRunning()
	job.SendEvent(JobEvent{Type: "started", Message: fmt.Sprintf("Downloading %d items", len(items))})

	session := download.NewSession(job.Folder)
	summary, err := session.Run(ctx, items, func(e download.Event) {
		job.RecordProgress()
		event := JobEvent{
			Type:    "progress",
			Message: fmt.Sprintf("Downloading %s (%d/%d)", e.Filename, e.Index+1, e.Total),
			Data:    map[string]any{"index": e.Index, "total": e.Total, "filename": e.Filename, "path": e.Path},
		}
		if e.Err != nil {
			event.Type = "item_failed"
			event.Message = fmt.Sprintf("Failed %s: %v", e.Filename, e.Err)
			log.Printf("download failed: %s: %v", sanitizeForLog(e.Filename), e.Err)
		}
		job.SendEvent(event)
	})
	if err != nil {
		if ctx.Err() != nil {
			// cancelled jobs already carry their terminal status
			return
		}
		job.Fail(err.Error())
		job.SendEvent(JobEvent{Type: "failed", Message: err.Error()})
		return
	}

	result := &DownloadJobResult{
		Downloaded: summary.Downloaded,
		Failed:     summary.Failed,
		Files:      summary.Files,
	}
	job.Complete(result)
	job.SendEvent(JobEvent{
		Type:    "completed",
		Message: fmt.Sprintf("Downloaded %d, failed %d", summary.Downloaded, summary.Failed),
		Data:    result,
	})
}

// Status returns the current state of a download job.
func (h *DownloadsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// Events streams job progress via SSE.
func (h *DownloadsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamJobEvents(w, r,
		func(id string) SSEJob {
			if job := h.jobManager.GetJob(id); job != nil {
				return job
			}
			return nil
		},
		func(job SSEJob) any {
			return job.(*DownloadJob)
		},
	)
}

// Cancel stops a running download job.
func (h *DownloadsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
