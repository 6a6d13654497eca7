package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/okhomenko/eventgate/internal/application"
)

const (
	queueRegistrationConfirmed = "registration.confirmed"
	queuePaymentFailed         = "registration.payment_failed"
)

// AMQPNotifier publishes settlement outcomes to RabbitMQ queues consumed by
// the mailer. Messages are persistent so they survive broker restarts.
type AMQPNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

func NewAMQPNotifier(url string, logger *slog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	for _, queue := range []string{queueRegistrationConfirmed, queuePaymentFailed} {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("rabbitmq queue declare failed for %s: %w", queue, err)
		}
	}

	return &AMQPNotifier{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

func (n *AMQPNotifier) RegistrationConfirmed(ctx context.Context, notice application.ConfirmationNotice) error {
	return n.publish(ctx, queueRegistrationConfirmed, notice)
}

func (n *AMQPNotifier) PaymentFailed(ctx context.Context, notice application.FailureNotice) error {
	return n.publish(ctx, queuePaymentFailed, notice)
}

func (n *AMQPNotifier) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal notification", "queue", queue, "error", err)
		return err
	}

	err = n.channel.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		n.logger.Error("failed to publish notification", "queue", queue, "error", err)
		return err
	}

	return nil
}

func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}

// NopNotifier is used when no broker is configured.
type NopNotifier struct {
	logger *slog.Logger
}

func NewNopNotifier(logger *slog.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

func (n *NopNotifier) RegistrationConfirmed(ctx context.Context, notice application.ConfirmationNotice) error {
	n.logger.Info("registration confirmed (notifications disabled)",
		"registration_id", notice.RegistrationID,
		"email", notice.Email,
	)
	return nil
}

func (n *NopNotifier) PaymentFailed(ctx context.Context, notice application.FailureNotice) error {
	n.logger.Info("payment failed (notifications disabled)",
		"registration_id", notice.RegistrationID,
		"email", notice.Email,
	)
	return nil
}
