package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-explorer/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// DownloadJob represents an async batch download job.
type DownloadJob struct {
	EventBroadcaster

	ID             string             `json:"id"`
	Folder         string             `json:"folder"`
	Status         JobStatus          `json:"status"`
	TotalItems     int                `json:"total_items"`
	ProcessedItems int                `json:"processed_items"`
	Error          string             `json:"error,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Result         *DownloadJobResult `json:"result,omitempty"`
}

// DownloadJobResult represents the outcome of a download job.
type DownloadJobResult struct {
	Downloaded int      `json:"downloaded"`
	Failed     int      `json:"failed"`
	Files      []string `json:"files,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *DownloadJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetRunning marks the job as running.
func (j *DownloadJob) SetRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
}

// RecordProgress bumps the processed counter.
func (j *DownloadJob) RecordProgress() {
	j.mu.Lock()
	j.ProcessedItems++
	j.mu.Unlock()
}

// Complete marks the job finished with its result.
func (j *DownloadJob) Complete(result *DownloadJobResult) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusCompleted
	j.Result = result
	j.CompletedAt = &now
	j.mu.Unlock()
}

// Fail marks the job as failed with an error message.
func (j *DownloadJob) Fail(message string) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusFailed
	j.Error = message
	j.CompletedAt = &now
	j.mu.Unlock()
}

// Cancel cancels the download job.
func (j *DownloadJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// SetCancel stores the context cancel used when the job is cancelled.
func (b *EventBroadcaster) SetCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface streamJobEvents needs to follow a job over SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*DownloadJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*DownloadJob),
	}
}

// CreateJob creates a new download job.
func (m *JobManager) CreateJob(id, folder string, totalItems int) *DownloadJob {
	job := &DownloadJob{
		ID:         id,
		Folder:     folder,
		Status:     JobStatusPending,
		TotalItems: totalItems,
		StartedAt:  time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *DownloadJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*DownloadJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*DownloadJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
