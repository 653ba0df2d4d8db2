package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// jobFinished reports whether a job status is terminal.
func jobFinished(status JobStatus) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// streamJobEvents streams a job's progress as server-sent events until
// the job reaches a terminal state, the client disconnects or the
// listener channel closes. A status snapshot goes out first so a late
// subscriber sees the current state immediately. The job ID comes from
// the "jobId" URL parameter.
func streamJobEvents(w http.ResponseWriter, r *http.Request, lookupJob func(string) SSEJob, snapshot func(SSEJob) any) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}
	job := lookupJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := job.AddListener()
	defer job.RemoveListener(events)

	writeSSE(w, flusher, "status", snapshot(job))

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			writeSSE(w, flusher, event.Type, event)
			if jobFinished(job.GetStatus()) {
				return
			}
		}
	}
}

// writeSSE emits one "event:"/"data:" frame and flushes it.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, _ := json.Marshal(data)
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}
