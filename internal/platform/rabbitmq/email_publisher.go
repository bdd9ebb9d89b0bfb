package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"taskhub/internal/notify"
)

// EmailPublisher enqueues account emails for the background worker instead
// of sending them inline with the request.
type EmailPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewEmailPublisher(conn *amqp.Connection, queueName string) *EmailPublisher {
	return &EmailPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *EmailPublisher) SendWelcome(ctx context.Context, to, name string) error {
	return p.publish(ctx, notify.EmailJob{Kind: notify.EmailWelcome, To: to, Name: name})
}

func (p *EmailPublisher) SendCancellation(ctx context.Context, to, name string) error {
	return p.publish(ctx, notify.EmailJob{Kind: notify.EmailCancellation, To: to, Name: name})
}

func (p *EmailPublisher) publish(ctx context.Context, job notify.EmailJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish email job failed: %w", err)
	}
	return nil
}
