package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeOrderCheck MessageType = "order.check"
	MessageTypeOrderEvent MessageType = "order.event"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// OrderCheckPayload — payload для команды проверки заказа.
type OrderCheckPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

// OrderEventPayload — payload для события жизненного цикла заказа.
type OrderEventPayload struct {
	OrderID uuid.UUID `json:"order_id"`

	// Event — имя события: "order.completed" или "order.failed".
	Event string `json:"event"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishOrderCheck публикует команду проверить заказ.
// Потребитель: Checker. Дубликаты безопасны — проверка идемпотентна.
func (p *Publisher) PublishOrderCheck(ctx context.Context, orderID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeOrderCheck,
		Payload:   OrderCheckPayload{OrderID: orderID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeOrders, RoutingKeyCheck, msg)
}

// PublishOrderEvent публикует событие о финальном статусе заказа.
// Потребитель: внешний сервис уведомлений.
func (p *Publisher) PublishOrderEvent(ctx context.Context, orderID uuid.UUID, event string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeOrderEvent,
		Payload:   OrderEventPayload{OrderID: orderID, Event: event},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyEvent, msg)
}
