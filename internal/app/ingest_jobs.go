package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
)

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// JobState is what the UI polls while a PDF is being processed.
type JobState struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    JobStatus     `json:"status"`
	Progress  int           `json:"progress"`
	Result    *IngestResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// JobQueue hands an ingest job to whatever runs it (broker or local goroutine).
type JobQueue interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

// JobTracker keeps job states in memory; finished jobs are evicted after retention.
type JobTracker struct {
	mu        sync.RWMutex
	jobs      map[string]*JobState
	retention time.Duration
	now       func() time.Time
}

func NewJobTracker(retention time.Duration) *JobTracker {
	if retention <= 0 {
		retention = time.Hour
	}
	return &JobTracker{jobs: make(map[string]*JobState), retention: retention, now: time.Now}
}

func (t *JobTracker) Get(id string) (JobState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.jobs[id]
	if !ok {
		return JobState{}, ErrJobNotFound
	}
	out := *st
	return out, nil
}

func (t *JobTracker) update(id, name string, fn func(*JobState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked()

	st, ok := t.jobs[id]
	if !ok {
		st = &JobState{ID: id, Name: name, Status: JobQueued}
		t.jobs[id] = st
	}
	fn(st)
	st.UpdatedAt = t.now()
}

func (t *JobTracker) evictLocked() {
	cutoff := t.now().Add(-t.retention)
	for id, st := range t.jobs {
		if (st.Status == JobDone || st.Status == JobFailed) && st.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
		}
	}
}

// IngestJobs submits background ingests and runs them when the queue delivers them.
type IngestJobs struct {
	library *LibraryService
	tracker *JobTracker
	queue   JobQueue
	newID   func() string
}

func NewIngestJobs(library *LibraryService, tracker *JobTracker) *IngestJobs {
	return &IngestJobs{library: library, tracker: tracker, newID: uuid.NewString}
}

// SetQueue is called once the queue exists; the queue itself needs IngestJobs as its processor.
func (j *IngestJobs) SetQueue(queue JobQueue) {
	j.queue = queue
}

func (j *IngestJobs) Submit(ctx context.Context, input IngestInput) (JobState, error) {
	if strings.TrimSpace(input.Text) == "" {
		return JobState{}, ErrInvalidInput
	}
	if j.queue == nil {
		return JobState{}, ErrIngestEnqueue
	}

	job := model.IngestJob{
		ID:     j.newID(),
		Name:   input.Name,
		Source: input.Source,
		Text:   input.Text,
	}
	j.tracker.update(job.ID, job.Name, func(st *JobState) { st.Status = JobQueued })

	if err := j.queue.Publish(ctx, job); err != nil {
		log.Printf("ingest jobs: publish %s failed: %v", job.ID, err)
		j.tracker.update(job.ID, job.Name, func(st *JobState) {
			st.Status = JobFailed
			st.Error = ErrIngestEnqueue.Error()
		})
		return JobState{}, fmt.Errorf("%w: %v", ErrIngestEnqueue, err)
	}
	return j.tracker.Get(job.ID)
}

func (j *IngestJobs) Status(id string) (JobState, error) {
	return j.tracker.Get(id)
}

// Process runs one job and records its outcome. It satisfies worker.JobProcessor;
// the returned error lets the worker tell an interrupted job from a finished one.
func (j *IngestJobs) Process(ctx context.Context, job model.IngestJob) error {
	j.tracker.update(job.ID, job.Name, func(st *JobState) {
		st.Status = JobRunning
		st.Progress = 0
	})

	result, err := j.library.Ingest(ctx, IngestInput{Name: job.Name, Source: job.Source, Text: job.Text}, func(percent int) {
		j.tracker.update(job.ID, job.Name, func(st *JobState) { st.Progress = percent })
	})
	if err != nil {
		log.Printf("ingest jobs: %s (%s) failed: %v", job.ID, job.Name, err)
		msg := err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			msg = "cancelled"
		}
		j.tracker.update(job.ID, job.Name, func(st *JobState) {
			st.Status = JobFailed
			st.Error = msg
		})
		return err
	}

	j.tracker.update(job.ID, job.Name, func(st *JobState) {
		st.Status = JobDone
		st.Progress = 100
		st.Result = result
	})
	return nil
}
