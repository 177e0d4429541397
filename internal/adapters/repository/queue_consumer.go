package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// DeliveryOutcome tells the consumer how to settle a message
type DeliveryOutcome int

const (
	// Ack removes the message from the queue
	Ack DeliveryOutcome = iota
	// Reject drops an invalid message without requeueing it
	Reject
	// Requeue returns the message to the queue for redelivery
	Requeue
)

func (o DeliveryOutcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Reject:
		return "reject"
	case Requeue:
		return "requeue"
	default:
		return "unknown"
	}
}

// MessageHandler processes one message body and decides how it is settled
type MessageHandler func(ctx context.Context, body []byte) DeliveryOutcome

// QueueConsumer consumes a durable RabbitMQ queue one message at a time.
// Messages are acknowledged only after the handler succeeds (at-least-once delivery).
type QueueConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	handler        MessageHandler
	connMutex      sync.RWMutex
	reconnectCh    chan bool
	stopReconnect  chan bool
	maxRetries     int
	retryDelay     time.Duration
	consumingCtx   context.Context
	consumingMutex sync.Mutex
	isConsuming    bool
	logger         zerolog.Logger
}

// NewQueueConsumer creates a new RabbitMQ consumer for queueName
func NewQueueConsumer(rabbitMQURL string, queueName string, handler MessageHandler, logger zerolog.Logger) (*QueueConsumer, error) {
	if queueName == "" {
		return nil, fmt.Errorf("queue name cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler is required")
	}

	consumer := &QueueConsumer{
		queueName:     queueName,
		handler:       handler,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
		logger:        logger.With().Str("component", "queue_consumer").Str("queue", queueName).Logger(),
	}

	if err := consumer.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go consumer.handleReconnection(rabbitMQURL)

	return consumer, nil
}

// connect establishes connection to RabbitMQ
func (c *QueueConsumer) connect(rabbitMQURL string) error {
	conn, channel, err := dialQueue(rabbitMQURL, c.queueName, c.maxRetries, c.retryDelay, c.logger)
	if err != nil {
		return err
	}

	c.connMutex.Lock()
	c.conn = conn
	c.channel = channel
	c.connMutex.Unlock()

	c.logger.Info().Msg("consumer connected to RabbitMQ")
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (c *QueueConsumer) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-c.reconnectCh:
			c.logger.Info().Msg("attempting to reconnect to RabbitMQ")
			c.connMutex.Lock()
			if c.conn != nil && !c.conn.IsClosed() {
				c.conn.Close()
			}
			if c.channel != nil && !c.channel.IsClosed() {
				c.channel.Close()
			}
			c.connMutex.Unlock()

			if err := c.connect(rabbitMQURL); err != nil {
				c.logger.Error().Err(err).Msg("reconnection failed")
				time.Sleep(5 * time.Second)
				select {
				case c.reconnectCh <- true:
				default:
				}
				continue
			}

			// Restart consuming after reconnection using the original context
			c.consumingMutex.Lock()
			if c.consumingCtx != nil && c.consumingCtx.Err() == nil && !c.isConsuming {
				go c.StartConsuming(c.consumingCtx)
			}
			c.consumingMutex.Unlock()
		case <-c.stopReconnect:
			return
		}
	}
}

// StartConsuming registers the consumer and processes messages in a background goroutine.
// Only one consuming loop runs per consumer instance.
func (c *QueueConsumer) StartConsuming(ctx context.Context) error {
	c.consumingMutex.Lock()
	if c.isConsuming {
		c.consumingMutex.Unlock()
		c.logger.Info().Msg("consumer is already running, skipping duplicate start")
		return nil
	}
	c.isConsuming = true
	c.consumingCtx = ctx
	c.consumingMutex.Unlock()

	stopConsuming := func() {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
	}

	c.connMutex.RLock()
	channel := c.channel
	conn := c.conn
	c.connMutex.RUnlock()

	if channel == nil || channel.IsClosed() || conn == nil || conn.IsClosed() {
		stopConsuming()
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	// one unacknowledged message at a time
	if err := channel.Qos(1, 0, false); err != nil {
		stopConsuming()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	consumerTag := fmt.Sprintf("%s-consumer-%d", c.queueName, time.Now().UnixNano())
	msgs, err := channel.Consume(
		c.queueName, // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		stopConsuming()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info().Str("consumer_tag", consumerTag).Msg("consumer started, waiting for messages")

	go func() {
		defer stopConsuming()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Msg("consumer context cancelled")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("consumer channel closed, attempting reconnection")
					select {
					case c.reconnectCh <- true:
					default:
					}
					return
				}
				c.settle(msg, c.handler(ctx, msg.Body))
			}
		}
	}()

	return nil
}

// settle acknowledges or rejects a delivery according to the handler outcome
func (c *QueueConsumer) settle(msg amqp091.Delivery, outcome DeliveryOutcome) {
	var err error
	switch outcome {
	case Ack:
		err = msg.Ack(false)
	case Reject:
		err = msg.Nack(false, false)
	default:
		err = msg.Nack(false, true)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("outcome", outcome.String()).Msg("failed to settle message")
	}
}

// Close stops reconnection and closes the RabbitMQ connection.
// The consuming context is cancelled by the caller during graceful shutdown.
func (c *QueueConsumer) Close() error {
	close(c.stopReconnect)

	c.consumingMutex.Lock()
	c.isConsuming = false
	c.consumingMutex.Unlock()

	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			c.logger.Error().Err(err).Msg("error closing RabbitMQ channel")
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("error closing RabbitMQ connection")
		}
	}

	c.logger.Info().Msg("consumer closed")
	return nil
}
