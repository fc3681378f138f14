package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gemstore/internal/models"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

const (
	// ExchangeName is the topic exchange order request events are published to.
	ExchangeName = "gemstore.order_requests"
	// QueueName is the durable queue bound to every order request event.
	QueueName = "gemstore.order_request_events"
	// BindingKey matches every order request event type.
	BindingKey = "order_request.#"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // amqp.Channel publishes must not interleave
	logger  logrus.FieldLogger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the exchange, the queue and
// their binding.
func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.WithField("exchange", ExchangeName).Info("RabbitMQ client connected")
	return &Client{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}
	if _, err := ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", QueueName, err)
	}
	if err := ch.QueueBind(QueueName, BindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", QueueName, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// PublishOrderRequestEvent publishes event as persistent JSON, routed by its
// type.
func (c *Client) PublishOrderRequestEvent(event models.OrderRequestEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order request event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		ExchangeName, // exchange
		event.Type,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         event.Type,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"type":             event.Type,
		"order_request_id": event.OrderRequestID,
	}).Debug("order request event published")
	return nil
}

// ConsumeOrderRequestEvents delivers events from the shared durable queue to
// handler until ctx is cancelled or the channel closes. Messages that fail to
// decode are dropped; handler errors requeue the message.
func (c *Client) ConsumeOrderRequestEvents(ctx context.Context, handler func(models.OrderRequestEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}
	return c.consume(ctx, QueueName, false, handler)
}

// TailOrderRequestEvents receives a copy of every event published from now on
// through a private server-named queue that is removed when the consumer
// goes away. The shared durable queue is left untouched.
func (c *Client) TailOrderRequestEvents(ctx context.Context, handler func(models.OrderRequestEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	q, err := c.channel.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare tail queue: %w", err)
	}
	if err := c.channel.QueueBind(q.Name, BindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", q.Name, err)
	}
	c.logger.WithField("queue", q.Name).Debug("tail queue declared")
	return c.consume(ctx, q.Name, true, handler)
}

func (c *Client) consume(ctx context.Context, queue string, exclusive bool, handler func(models.OrderRequestEvent) error) error {
	msgs, err := c.channel.Consume(
		queue,     // queue
		"",        // consumer tag
		false,     // auto-ack
		exclusive, // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("RabbitMQ delivery channel closed")
			}
			c.handleDelivery(msg, handler)
		}
	}
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(models.OrderRequestEvent) error) {
	var event models.OrderRequestEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("dropping undecodable message")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.WithError(nackErr).Error("failed to nack message")
		}
		return
	}

	if err := handler(event); err != nil {
		c.logger.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("order request event handler failed, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.WithError(nackErr).Error("failed to nack message")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.WithError(ackErr).Error("failed to ack message")
	}
}
