// Package queue_publisher provides functions to publish domain events to
// RabbitMQ. Errors are logged and returned to allow callers to ignore
// failures without interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/rewear-app/rewear-api/internal/queue"
)

// PublishItemRedeemed publishes an ItemRedeemedEvent to the item.redeemed
// queue.
func PublishItemRedeemed(ctx context.Context, event q.ItemRedeemedEvent) error {
	return publish(ctx, q.ItemRedeemedQueue, event)
}

// PublishSwapCompleted publishes a SwapCompletedEvent to the
// swap.completed queue.
func PublishSwapCompleted(ctx context.Context, event q.SwapCompletedEvent) error {
	return publish(ctx, q.SwapCompletedQueue, event)
}

// publish opens a short-lived connection, declares the target queue
// (idempotent, durable) and publishes the event as persistent JSON.  Any
// error is logged and returned so the caller can choose to ignore it; a
// failed publish never fails the request that produced the event.
func publish(ctx context.Context, queueName string, event interface{}) error {
	conn, err := amqp.Dial(q.BrokerURL())
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

	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
