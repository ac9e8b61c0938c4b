// Package amqp carries notification delivery jobs over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cashbook/internal/core"

	"github.com/avast/retry-go"
	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// one unacknowledged delivery at a time per consumer
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// reconnect replaces a broken connection.
func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.channel = nil, nil
	c.mu.Unlock()

	slog.WarnContext(ctx, "Reconnecting to AMQP broker", "exchange", c.exchangeName)
	return c.connect()
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Publish implements the scheduler's publisher contract.
func (c *Client) Publish(ctx context.Context, n core.Notification) error {
	return c.PublishNotification(ctx, n)
}

// PublishNotification publishes a persistent delivery job for n. Connection
// errors are retried with backoff after reconnecting.
func (c *Client) PublishNotification(ctx context.Context, n core.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("publish notification: circuit breaker is open")
	}

	body, err := NewNotificationMessage(n).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	attempt := 0
	err = retry.Do(
		func() error {
			ch := c.currentChannel()
			if ch == nil {
				return errors.New("connection closed")
			}
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()
			return ch.PublishWithContext(
				pctx,
				c.exchangeName, // exchange
				c.queueName,    // routing key
				false,          // mandatory
				false,          // immediate
				amqp091.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp091.Persistent,
					Timestamp:    time.Now(),
					Body:         body,
				},
			)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.RetryIf(isConnectionError),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return exponentialBackoff(int(n))
		}),
		retry.OnRetry(func(n uint, err error) {
			attempt = int(n) + 1
			if rerr := c.reconnect(ctx); rerr != nil {
				slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt, "error", rerr)
			}
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published notification message",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"retries", attempt,
		"queue", c.queueName)
	return nil
}

// ConsumeNotifications delivers messages to handler until ctx ends. Messages
// that fail to decode are dropped; handler errors requeue the message.
func (c *Client) ConsumeNotifications(ctx context.Context, handler func(context.Context, *NotificationMessage) error) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("start consuming: connection closed")
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming notification messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery that settles a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *NotificationMessage) error) {
	settle(ctx, &d, d.Body, handler)
}

func settle(ctx context.Context, ack acknowledger, body []byte, handler func(context.Context, *NotificationMessage) error) {
	msg, err := NotificationMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		ack.Nack(false, false) // drop
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"notification_id", msg.ID)
		ack.Nack(false, true) // requeue
		return
	}

	ack.Ack(false)
	slog.DebugContext(ctx, "Processed notification message", "notification_id", msg.ID)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
