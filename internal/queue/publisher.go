package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// notificationQueueName is the durable queue both the publisher and the
// background consumer agree on.
const notificationQueueName = "reservation.notifications"

// Publisher sends NotificationEvents to RabbitMQ.  A fresh connection is
// dialed per publish: events are rare relative to bookings served, and a
// short-lived connection avoids keeping broken channels around across broker
// restarts.  Errors are logged and returned so callers can ignore failures
// without interrupting the request flow.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher bound to the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// Publish marshals the event and delivers it to the notifications queue.
// Messages are marked persistent so they survive broker restarts.
func (p *Publisher) Publish(ctx context.Context, ev NotificationEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare so the publisher works before the consumer starts.
	if _, err := ch.QueueDeclare(notificationQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", notificationQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
