// Package queue publishes ticket lifecycle events to RabbitMQ for the
// external audit-log collaborator. Publishing is best-effort: failures
// are logged and never interrupt the ticket flow.
package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/guildtools/ticketbot/internal/events"
)

// Publisher emits domain events to a durable topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq", zap.String("exchange", exchange))
	return &Publisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// Handle is an events.EventHandler publishing the event with its type
// as routing key. Messages are persistent.
func (p *Publisher) Handle(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.ID,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, pub); err != nil {
		p.logger.Warn("publish event failed",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// SubscribeAll wires the publisher to every ticket event type.
func (p *Publisher) SubscribeAll(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClosed,
		events.EventPanelUpdated,
	} {
		dispatcher.Subscribe(eventType, p.Handle)
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
