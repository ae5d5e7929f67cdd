package pipeline

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgallion1/extractproof/internal/reconcile"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusExtracting  JobStatus = "extracting"
	StatusReconciling JobStatus = "reconciling"
	StatusLocating    JobStatus = "locating"
	StatusRendering   JobStatus = "rendering"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// statusFor maps an analyzer stage to the job status shown while it runs.
func statusFor(s Stage) JobStatus {
	if s == StageDone {
		return StatusCompleted
	}
	return JobStatus(s)
}

// Job tracks the state of a single analysis run.
type Job struct {
	mu sync.Mutex

	ID        string    `json:"job_id"`
	Filename  string    `json:"filename"`
	Highlight bool      `json:"highlight"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	sourcePath string
	outputPath string
	outcome    *Outcome
	errors     []string
	changed    chan struct{}
}

// NewJob creates a queued job for an uploaded file already written to
// sourcePath. Its rendered output goes to outputPath.
func NewJob(id, filename, sourcePath, outputPath string, highlight bool) *Job {
	now := time.Now()
	return &Job{
		ID:         id,
		Filename:   filename,
		Highlight:  highlight,
		Status:     StatusQueued,
		Phase:      "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
		sourcePath: sourcePath,
		outputPath: outputPath,
		changed:    make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs along with their upload and output files.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	var expired []*Job
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, job)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		job.removeFiles()
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

func (j *Job) removeFiles() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sourcePath != "" {
		os.Remove(j.sourcePath)
	}
	if j.outputPath != "" && j.outputPath != j.sourcePath {
		os.Remove(j.outputPath)
	}
}

// notifyLocked wakes everyone waiting on Changed. Caller holds j.mu.
func (j *Job) notifyLocked() {
	j.UpdatedAt = time.Now()
	if j.changed != nil {
		close(j.changed)
	}
	j.changed = make(chan struct{})
}

// Changed returns a channel closed at the job's next state change.
func (j *Job) Changed() <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.changed == nil {
		j.changed = make(chan struct{})
	}
	return j.changed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.notifyLocked()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.notifyLocked()
}

// Complete stores the run's outcome and marks the job completed.
func (j *Job) Complete(out *Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcome = out
	j.Status = StatusCompleted
	j.Phase = "done"
	j.notifyLocked()
}

// Outcome returns the run's outcome, or nil until the job completes.
func (j *Job) Outcome() *Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}

// SourcePath returns where the uploaded document is stored.
func (j *Job) SourcePath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sourcePath
}

// OutputPath returns where the rendered document is written.
func (j *Job) OutputPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outputPath
}

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID               string            `json:"job_id"`
	Status           JobStatus         `json:"status"`
	Phase            string            `json:"phase"`
	Filename         string            `json:"filename"`
	Highlight        bool              `json:"highlight"`
	ContentHash      string            `json:"content_hash,omitempty"`
	Errors           []string          `json:"errors"`
	Counts           *reconcile.Counts `json:"counts,omitempty"`
	ExtractionTiming string            `json:"extraction_timing,omitempty"`
	HighlightTiming  string            `json:"highlight_timing,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	snap := JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Highlight:   j.Highlight,
		ContentHash: j.ContentHash,
		Errors:      errs,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.outcome != nil {
		counts := j.outcome.Counts
		snap.Counts = &counts
		snap.ExtractionTiming = j.outcome.ExtractionTiming()
		snap.HighlightTiming = j.outcome.HighlightTiming()
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
