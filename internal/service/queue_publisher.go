package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/account-auth/internal/queue"
)

// ErrPublishQueueFull is returned when the outbound buffer has no room.
var ErrPublishQueueFull = errors.New("auth event queue full")

// AMQPPublisher publishes auth events to a durable RabbitMQ queue.
// Publish only buffers the event; Run drains the buffer and dials per
// message, so a broker outage never slows down an auth request.
type AMQPPublisher struct {
	URL         string
	Queue       string
	DialTimeout time.Duration
	SendTimeout time.Duration
	Log         *slog.Logger

	pending chan q.AuthEvent
}

// NewAMQPPublisher returns a publisher for the auth events queue at url
// buffering up to 256 events.
func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{
		URL:         url,
		Queue:       q.AuthEventsQueue,
		DialTimeout: 2 * time.Second,
		SendTimeout: 5 * time.Second,
		Log:         log,
		pending:     make(chan q.AuthEvent, 256),
	}
}

// Publish queues ev for delivery without blocking.  When the buffer is
// full the event is dropped and ErrPublishQueueFull returned.
func (p *AMQPPublisher) Publish(_ context.Context, ev q.AuthEvent) error {
	select {
	case p.pending <- ev:
		return nil
	default:
		return ErrPublishQueueFull
	}
}

// Run delivers queued events until ctx is done.  Failures are logged and
// the event is dropped.
func (p *AMQPPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.pending:
			sendCtx, cancel := context.WithTimeout(ctx, p.SendTimeout)
			_ = p.send(sendCtx, ev)
			cancel()
		}
	}
}

// send delivers ev as a persistent JSON message.
func (p *AMQPPublisher) send(ctx context.Context, ev q.AuthEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.DialTimeout)})
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		p.Log.Warn("rabbitmq: queue declare failed", "queue", p.Queue, "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq: publish failed", "queue", p.Queue, "err", err)
		return err
	}
	return nil
}
