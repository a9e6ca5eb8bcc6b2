package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/GermanBurdin1/lesson-service/internal/models"
)

// Routing keys of the lesson lifecycle events.
const (
	KeyLessonCreated   = "lesson_created"
	KeyBookingProposal = "booking_proposal"
	KeyBookingResponse = "booking_response"
	KeyLessonStarted   = "lesson_started"
	KeyLessonCancelled = "lesson_cancelled"
)

type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
}

func NewPublisher(url, exchange string, timeout time.Duration) (*Publisher, error) {
	const op = "notify.NewPublisher"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: open channel: %w", op, err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: declare exchange: %w", op, err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange, timeout: timeout}, nil
}

// Publish is bounded by the configured timeout so a slow broker can never
// stall the booking mutation that triggered the event.
func (p *Publisher) Publish(ctx context.Context, routingKey string, n *models.Notification) error {
	const op = "notify.Publisher.Publish"

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
