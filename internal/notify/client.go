package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/service"
	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the fanout exchange invalidations are published to.
const DefaultExchange = "sales.cache"

const publishTimeout = 5 * time.Second

// Config holds broker settings.
type Config struct {
	URL      string
	Exchange string
	Queue    string // Empty declares a private, server-named queue
	Origin   string // Identifies this replica in published messages
}

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg *InvalidationMessage) error

// Client publishes and consumes invalidation messages.
type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	logger   *slog.Logger
	exchange string
	queue    string
	origin   string
}

// Connect dials the broker, retrying transient failures, and declares the
// exchange and queue.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: AMQP URL is required", common.ErrMissingConfig)
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Origin == "" {
		cfg.Origin, _ = os.Hostname()
	}

	var conn *amqp091.Connection
	err := common.WithRetry(ctx, func(context.Context) error {
		var dialErr error
		conn, dialErr = amqp091.Dial(cfg.URL)
		if dialErr != nil {
			return fmt.Errorf("dial AMQP: %w", dialErr)
		}
		return nil
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2})
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:     conn,
		channel:  channel,
		logger:   common.LoggerOrDefault(logger),
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		origin:   cfg.Origin,
	}
	if err := c.setup(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchange, // name
		"fanout",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	private := c.queue == ""
	queue, err := c.channel.QueueDeclare(
		c.queue,  // name
		!private, // durable
		private,  // delete when unused
		private,  // exclusive
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	c.queue = queue.Name

	if err := c.channel.QueueBind(c.queue, "", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishInvalidation announces that sourceURL, or every source when empty, changed.
func (c *Client) PublishInvalidation(ctx context.Context, sourceURL string) error {
	body, err := NewInvalidationMessage(sourceURL, c.origin).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "Published cache invalidation",
		"source", sourceURL,
		"exchange", c.exchange)
	return nil
}

// Consume hands every delivery to handler until ctx is canceled or the
// channel closes.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Listening for cache invalidations", "queue", c.queue)
	return consume(ctx, deliveries, handler, c.logger)
}

// ErrChannelClosed is returned when the broker closes the delivery channel.
var ErrChannelClosed = errors.New("delivery channel closed")

func consume(ctx context.Context, deliveries <-chan amqp091.Delivery, handler Handler, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return ErrChannelClosed
			}
			handleDelivery(ctx, delivery, handler, logger)
		}
	}
}

// handleDelivery acks processed messages, drops undecodable ones, and
// requeues messages whose handler failed.
func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler Handler, logger *slog.Logger) {
	msg, err := InvalidationMessageFromJSON(delivery.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to decode message", "error", err)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			logger.WarnContext(ctx, "Failed to reject message", "error", nackErr)
		}
		return
	}

	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to handle message", "error", err, "source", msg.SourceURL)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			logger.WarnContext(ctx, "Failed to requeue message", "error", nackErr)
		}
		return
	}

	if ackErr := delivery.Ack(false); ackErr != nil {
		logger.WarnContext(ctx, "Failed to acknowledge message", "error", ackErr)
	}
}

// InvalidateHandler applies messages to a local cache.
func InvalidateHandler(cache service.Invalidator, logger *slog.Logger) Handler {
	logger = common.LoggerOrDefault(logger)
	return func(ctx context.Context, msg *InvalidationMessage) error {
		if msg.SourceURL == "" {
			cache.InvalidateAll()
		} else {
			cache.Invalidate(msg.SourceURL)
		}
		logger.InfoContext(ctx, "Applied cache invalidation",
			"source", msg.SourceURL,
			"origin", msg.Origin)
		return nil
	}
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
