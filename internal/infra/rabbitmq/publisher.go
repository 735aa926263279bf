package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher owns one channel used for all outbound messages of a worker
// process. amqp channels are not safe for concurrent publishes, so callers
// serialize through the use case.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

// persistent wraps a JSON payload in a durable publishing.
func persistent(msg []byte, headers amqp.Table) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
	}
}

// StatusPublisher emits ConversionStatusMessage updates through the topic
// exchange so interested services can follow job progress.
type StatusPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewStatusPublisher(pub *Publisher) *StatusPublisher {
	return &StatusPublisher{pub: pub, routingKey: defaultStatusKey}
}

func (sp *StatusPublisher) PublishStatus(ctx context.Context, msg []byte) error {
	return sp.pub.channel.PublishWithContext(ctx,
		sp.pub.exchange, sp.routingKey,
		false, false,
		persistent(msg, nil),
	)
}

// DLQPublisher parks poison messages on the dead-letter queue, tagging each
// with the reason it could not be converted. It publishes through the
// default exchange straight to the queue so a broken topology cannot swallow
// the evidence.
type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	return dp.pub.channel.PublishWithContext(ctx,
		"", dp.queue,
		false, false,
		persistent(msg, amqp.Table{"x-dlq-reason": reason}),
	)
}
