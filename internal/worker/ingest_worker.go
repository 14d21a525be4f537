package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
)

// JobProcessor runs one ingest job to completion. Failures are recorded by the
// processor itself; the returned error only decides whether the job is redelivered.
type JobProcessor interface {
	Process(ctx context.Context, job model.IngestJob) error
}

// acknowledger is the slice of amqp.Delivery the consume loop needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// IngestWorker consumes ingest jobs from RabbitMQ one at a time.
type IngestWorker struct {
	conn      *amqp.Connection
	processor JobProcessor
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, processor JobProcessor, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	// Embedding is rate limited upstream; never hold more than one job.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d.Body, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, body []byte, ack acknowledger) {
	var job model.IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		log.Printf("ingest worker: decode job failed: %v", err)
		_ = ack.Nack(false, false)
		return
	}
	if job.ID == "" {
		log.Printf("ingest worker: job without id dropped")
		_ = ack.Nack(false, false)
		return
	}

	if err := w.processor.Process(ctx, job); interrupted(err) {
		log.Printf("ingest worker: job %s interrupted, requeueing", job.ID)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

// interrupted reports a job stopped by shutdown rather than by its own content.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
