package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyLoanApproved    = "loan.approved"
	routingKeyLoanRejected    = "loan.rejected"
	routingKeyLoanRepaid      = "loan.repaid"
	routingKeyLoanForeclosed  = "loan.foreclosed"
	routingKeyPaymentRecorded = "payment.recorded"
	publisherAppID            = "loanfriend"
)

type Publisher interface {
	PublishLoanApproved(ctx context.Context, event LoanDecisionEvent) error
	PublishLoanRejected(ctx context.Context, event LoanDecisionEvent) error
	PublishLoanRepaid(ctx context.Context, event LoanClosedEvent) error
	PublishLoanForeclosed(ctx context.Context, event LoanClosedEvent) error
	PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error
}

type LoanDecisionEvent struct {
	LoanID     int64     `json:"loanId"`
	UserID     int64     `json:"userId"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	DecidedBy  *int64    `json:"decidedBy,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type LoanClosedEvent struct {
	LoanID           int64     `json:"loanId"`
	UserID           int64     `json:"userId"`
	Status           string    `json:"status"`
	SettlementAmount string    `json:"settlementAmount,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

type PaymentRecordedEvent struct {
	LoanID           int64     `json:"loanId"`
	PaymentID        int64     `json:"paymentId"`
	EMINumber        int       `json:"emiNumber"`
	Amount           string    `json:"amount"`
	PaymentType      string    `json:"paymentType"`
	GatewayReference string    `json:"gatewayReference,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

type RabbitMQEventPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

// NewRabbitMQEventPublisher declares the topic exchange up front so a
// misconfigured broker fails at startup rather than on the first event.
func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (Publisher, error) {
	switch {
	case conn == nil:
		return nil, fmt.Errorf("rabbitmq connection is nil")
	case exchangeName == "":
		return nil, fmt.Errorf("rabbitmq exchange name is empty")
	case logger == nil:
		panic("logger cannot be nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel for exchange declaration: %w", err)
	}
	defer ch.Close()

	// durable topic exchange, no auto-delete
	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQEventPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQEventPublisher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload", slog.Any("error", err))
		return fmt.Errorf("marshal event: %w", err)
	}

	// Channels are cheap and not safe for concurrent use, so each publish
	// gets its own.
	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("open channel: %w", err)
	}
	defer channel.Close()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
		AppId:        publisherAppID,
	}
	if err := channel.PublishWithContext(ctx, p.exchangeName, routingKey, false, false, msg); err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish event", slog.Any("error", err))
		return fmt.Errorf("publish event: %w", err)
	}

	logCtx.DebugContext(ctx, "Published event", "bodySize", len(body))
	return nil
}

func (p *RabbitMQEventPublisher) PublishLoanApproved(ctx context.Context, event LoanDecisionEvent) error {
	return p.publish(ctx, routingKeyLoanApproved, event)
}

func (p *RabbitMQEventPublisher) PublishLoanRejected(ctx context.Context, event LoanDecisionEvent) error {
	return p.publish(ctx, routingKeyLoanRejected, event)
}

func (p *RabbitMQEventPublisher) PublishLoanRepaid(ctx context.Context, event LoanClosedEvent) error {
	return p.publish(ctx, routingKeyLoanRepaid, event)
}

func (p *RabbitMQEventPublisher) PublishLoanForeclosed(ctx context.Context, event LoanClosedEvent) error {
	return p.publish(ctx, routingKeyLoanForeclosed, event)
}

func (p *RabbitMQEventPublisher) PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error {
	return p.publish(ctx, routingKeyPaymentRecorded, event)
}

// NopPublisher drops every event. Used when RabbitMQ is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishLoanApproved(context.Context, LoanDecisionEvent) error {
	return nil
}

func (NopPublisher) PublishLoanRejected(context.Context, LoanDecisionEvent) error {
	return nil
}

func (NopPublisher) PublishLoanRepaid(context.Context, LoanClosedEvent) error {
	return nil
}

func (NopPublisher) PublishLoanForeclosed(context.Context, LoanClosedEvent) error {
	return nil
}

func (NopPublisher) PublishPaymentRecorded(context.Context, PaymentRecordedEvent) error {
	return nil
}
