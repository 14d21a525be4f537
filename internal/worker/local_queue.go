package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
)

const defaultLocalQueueSize = 64

// LocalQueue is the in-process stand-in for the broker: one goroutine drains a
// buffered channel so jobs still run strictly one after another.
type LocalQueue struct {
	processor JobProcessor
	jobs      chan model.IngestJob

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLocalQueue(processor JobProcessor, size int) *LocalQueue {
	if size <= 0 {
		size = defaultLocalQueueSize
	}
	return &LocalQueue{
		processor: processor,
		jobs:      make(chan model.IngestJob, size),
	}
}

func (q *LocalQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job := <-q.jobs:
				if err := q.processor.Process(workerCtx, job); interrupted(err) {
					log.Printf("local queue: job %s interrupted by shutdown", job.ID)
				}
			}
		}
	}()
	return nil
}

// Publish never blocks; a full queue is reported to the caller.
func (q *LocalQueue) Publish(ctx context.Context, job model.IngestJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("local ingest queue is full (%d jobs)", cap(q.jobs))
	}
}

func (q *LocalQueue) Close() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}
