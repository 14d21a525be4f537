package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
)

type captureQueue struct {
	jobs []model.IngestJob
	err  error
}

func (q *captureQueue) Publish(_ context.Context, job model.IngestJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestIngestJobs_SubmitThenProcess(t *testing.T) {
	f := newFixture(t, "k")
	jobs := NewIngestJobs(f.library, NewJobTracker(time.Hour))
	q := &captureQueue{}
	jobs.SetQueue(q)

	st, err := jobs.Submit(context.Background(), IngestInput{Name: "manual.pdf", Source: model.SourcePDF, Text: safetyNotes})
	require.NoError(t, err)
	assert.Equal(t, JobQueued, st.Status)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, st.ID, q.jobs[0].ID)

	require.NoError(t, jobs.Process(context.Background(), q.jobs[0]))

	done, err := jobs.Status(st.ID)
	require.NoError(t, err)
	assert.Equal(t, JobDone, done.Status)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Result)
	assert.Equal(t, model.SourcePDF, done.Result.Document.Source)
	assert.Equal(t, 3, done.Result.ChunkCount)
}

func TestIngestJobs_ProcessFailure(t *testing.T) {
	f := newFixture(t, "")
	jobs := NewIngestJobs(f.library, NewJobTracker(time.Hour))

	err := jobs.Process(context.Background(), model.IngestJob{ID: "j1", Name: "x", Text: safetyNotes})
	require.Error(t, err)

	st, err := jobs.Status("j1")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, st.Status)
	assert.NotEmpty(t, st.Error)
}

// cancelAfterProvider cancels the ingest context once n chunks are embedded and
// then behaves like a provider that honours ctx.
type cancelAfterProvider struct {
	next   *keywordProvider
	n      int
	cancel context.CancelFunc
	calls  int
}

func (p *cancelAfterProvider) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.calls++
	vec, err := p.next.Embed(ctx, apiKey, text)
	if p.calls == p.n {
		p.cancel()
	}
	return vec, err
}

func TestIngestJobs_CancelledMidIngestKeepsNothing(t *testing.T) {
	f := newFixture(t, "k")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &cancelAfterProvider{next: f.provider, n: 1, cancel: cancel}
	f.library.embedder = rag.NewEmbedder(provider, staticKey("k"), 0)
	jobs := NewIngestJobs(f.library, NewJobTracker(time.Hour))

	err := jobs.Process(ctx, model.IngestJob{ID: "j1", Name: "manual.pdf", Source: model.SourcePDF, Text: safetyNotes})
	require.ErrorIs(t, err, context.Canceled)

	st, err := jobs.Status("j1")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, st.Status)
	assert.Equal(t, "cancelled", st.Error)
	assert.Nil(t, st.Result)

	docs, err := f.store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, f.kb.Len())
}

func TestIngestJobs_EnqueueFailure(t *testing.T) {
	f := newFixture(t, "k")
	jobs := NewIngestJobs(f.library, NewJobTracker(time.Hour))
	jobs.SetQueue(&captureQueue{err: errors.New("broker down")})

	_, err := jobs.Submit(context.Background(), IngestInput{Name: "x", Text: "text"})
	assert.ErrorIs(t, err, ErrIngestEnqueue)
}

func TestIngestJobs_Validation(t *testing.T) {
	f := newFixture(t, "k")
	jobs := NewIngestJobs(f.library, NewJobTracker(time.Hour))

	_, err := jobs.Submit(context.Background(), IngestInput{Name: "x", Text: "text"})
	assert.ErrorIs(t, err, ErrIngestEnqueue, "no queue wired")

	jobs.SetQueue(&captureQueue{})
	_, err = jobs.Submit(context.Background(), IngestInput{Name: "x", Text: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = jobs.Status("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobTracker_EvictsFinishedJobs(t *testing.T) {
	tr := NewJobTracker(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.update("old", "a", func(st *JobState) { st.Status = JobDone })
	tr.update("running", "b", func(st *JobState) { st.Status = JobRunning })

	now = now.Add(2 * time.Minute)
	tr.update("new", "c", func(st *JobState) { st.Status = JobQueued })

	_, err := tr.Get("old")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = tr.Get("running")
	assert.NoError(t, err)
}
