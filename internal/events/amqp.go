package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/expensekey/internal/models"
)

const publishTimeout = 5 * time.Second

// AMQPPublisher publishes activity messages to a durable direct exchange.
type AMQPPublisher struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *slog.Logger
}

// NewAMQPPublisher dials url and declares the exchange and a queue bound to it.
func NewAMQPPublisher(url, exchangeName, queueName string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &AMQPPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if p.queueName == "" {
		return nil
	}
	_, err = p.channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name, as usual for a direct exchange.
	if err := p.channel.QueueBind(p.queueName, p.queueName, p.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishActivity publishes one persistent message per entry.
func (p *AMQPPublisher) PublishActivity(ctx context.Context, groupID string, entries []models.ActivityEntry) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, entry := range entries {
		body, err := NewActivityMessage(groupID, entry).ToJSON()
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		err = p.channel.PublishWithContext(
			ctx,
			p.exchangeName, // exchange
			p.queueName,    // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
				MessageId:    fmt.Sprintf("%s/%d", groupID, entry.ID),
				Headers:      amqp091.Table{"group_id": groupID},
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish message: %w", err)
		}
	}

	p.logger.DebugContext(ctx, "Published activity",
		"group_id", groupID,
		"entries", len(entries),
		"exchange", p.exchangeName,
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
