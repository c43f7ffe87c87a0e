package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publishes events as persistent JSON messages on a durable queue.
type RabbitMQ struct {
	conn      *amqp.Connection
	channels  chan *amqp.Channel
	mu        sync.Mutex
	closed    bool
	queueName string
}

var ErrPublisherClosed = errors.New("rabbitmq publisher is closed")

func NewRabbitMQ(url, queueName string, poolSize int) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r := &RabbitMQ{
		conn:      conn,
		channels:  make(chan *amqp.Channel, poolSize),
		queueName: queueName,
	}
	for i := 0; i < poolSize; i++ {
		ch, err := r.createChannel()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create channel %d: %w", i, err)
		}
		r.channels <- ch
	}

	log.Printf("Connected to RabbitMQ queue %s with %d channels", queueName, poolSize)
	return r, nil
}

func (r *RabbitMQ) createChannel() (*amqp.Channel, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, err
	}
	_, err = ch.QueueDeclare(
		r.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return ch, nil
}

func (r *RabbitMQ) getChannel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrPublisherClosed
	}
	select {
	case ch := <-r.channels:
		if ch.IsClosed() {
			return r.createChannel()
		}
		return ch, nil
	default:
		return nil, errors.New("no channels available in pool")
	}
}

func (r *RabbitMQ) returnChannel(ch *amqp.Channel) {
	if ch == nil || ch.IsClosed() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Closing the connection closes every channel on it.
	if r.closed {
		return
	}
	select {
	case r.channels <- ch:
	default:
		ch.Close()
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, e Event) error {
	ch, err := r.getChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer r.returnChannel(ch)

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		"",          // exchange
		r.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         e.Type,
			MessageId:    e.OrderID,
			Timestamp:    e.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

func (r *RabbitMQ) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true

	close(r.channels)
	for ch := range r.channels {
		ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
