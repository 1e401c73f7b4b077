package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Domain event types, used as routing keys on the topic exchange.
const (
	TypeSurveySubmitted  = "survey.submitted"
	TypeQuestionsCreated = "questions.created"
	TypeQuestionsUpdated = "questions.updated"
	TypeQuestionsDeleted = "questions.deleted"
	TypeQuestionsOrdered = "questions.reordered"
)

// Publisher emits domain events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// RabbitPublisher publishes events to a durable RabbitMQ topic exchange.
// A publisher built without a URL is disabled and drops every event.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      zerolog.Logger
}

// NewRabbitPublisher dials RabbitMQ and declares the exchange.
func NewRabbitPublisher(url, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	p := &RabbitPublisher{
		exchange: exchange,
		log:      log.With().Str("component", "event_publisher").Logger(),
	}

	if url == "" {
		p.log.Warn().Msg("RABBITMQ_URL is empty, event publishing is disabled")
		return p, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = channel
	p.enabled = true
	p.log.Info().Str("exchange", exchange).Msg("Event publisher initialized")
	return p, nil
}

// Publish marshals payload into an Envelope and publishes it with eventType as routing key.
func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if !p.enabled {
		p.log.Debug().Str("event_type", eventType).Msg("Event publishing disabled, skipping")
		return nil
	}

	body, err := json.Marshal(Envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			Headers:      amqp091.Table{"event_type": eventType},
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Debug().Str("event_type", eventType).Msg("Published event")
	return nil
}

// Close releases the channel and connection.
func (p *RabbitPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("Close channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, interface{}) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
