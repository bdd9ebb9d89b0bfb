package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"taskhub/internal/notify"
)

// EmailWorker drains the email queue and delivers through the mailer.
// Delivery is best-effort: failures are logged and the job is dropped, they
// never propagate back to the request that enqueued them.
type EmailWorker struct {
	conn      *amqp.Connection
	mailer    *notify.Mailer
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEmailWorker(conn *amqp.Connection, mailer *notify.Mailer, queueName string) *EmailWorker {
	return &EmailWorker{
		conn:      conn,
		mailer:    mailer,
		queueName: queueName,
	}
}

func (w *EmailWorker) Start(ctx context.Context) error {
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

				var job notify.EmailJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode email job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.mailer.Send(workerCtx, job); err != nil {
					log.Printf("worker send %s email to %s failed: %v", job.Kind, job.To, err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *EmailWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
