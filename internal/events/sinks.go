package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// LogSink writes every message to a slog logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events.log")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, msg Message) error {
	attrs := []any{
		"event_id", msg.ID,
		"seq", msg.Seq,
		"type", msg.Type,
		"account_id", msg.Account.ID,
		"balance", msg.Account.Balance.String(),
	}
	if msg.Transaction != nil {
		attrs = append(attrs,
			"transaction_id", msg.Transaction.ID,
			"kind", msg.Transaction.Kind,
			"amount", msg.Transaction.Amount.String(),
		)
	}
	if msg.RemovedTransactions > 0 {
		attrs = append(attrs, "removed_transactions", msg.RemovedTransactions)
	}
	s.logger.InfoContext(ctx, "ledger event", attrs...)
	return nil
}

func (s *LogSink) Close() error { return nil }

// KafkaConfig configures a KafkaSink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaSink publishes messages to a Kafka topic keyed by account id, so all
// events of one account land on the same partition.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaSink creates a KafkaSink. No connection is made until the first
// publish.
func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "events.kafka")

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return &KafkaSink{writer: writer, logger: logger}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, msg Message) error {
	value, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key(),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

// AMQPConfig configures an AMQPSink.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPSink publishes messages to a RabbitMQ topic exchange. The routing key
// is the configured prefix followed by the event type, e.g.
// "ledger.events.transaction.applied".
type AMQPSink struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewAMQPSink dials the broker and declares the exchange.
func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp sink requires a URL")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPSink{
		conn:       conn,
		channel:    channel,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Publish(ctx context.Context, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = s.channel.PublishWithContext(ctx,
		s.exchange,
		routingKey(s.routingKey, msg.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.OccurredAt,
			Type:         msg.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if err := s.channel.Close(); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to close channel: %w", err)
	}
	return s.conn.Close()
}

func routingKey(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
