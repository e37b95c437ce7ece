package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeOrders Exchange = "petstudio.orders"
	ExchangeEvents Exchange = "petstudio.events"
	ExchangeDLQ    Exchange = "petstudio.dlq"
)

// Queues — имена очередей.
const (
	QueueOrdersCheck Queue = "orders.check"
	QueueOrderEvents Queue = "orders.events"
	QueueDLQChecks   Queue = "dlq.checks"
)

// Routing keys.
const (
	RoutingKeyCheck     RoutingKey = "check"
	RoutingKeyEvent     RoutingKey = "event"
	RoutingKeyDLQChecks RoutingKey = "checks"
)

// SetupTopology создаёт обменники, очереди и привязки.
// Идемпотентна: повторный вызов на существующей топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeOrders, "direct"},
		{ExchangeEvents, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQChecks),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// orders.check — с DLQ (битые сообщения не должны зацикливаться:
		// следующий sweep всё равно опубликует новую проверку)
		{QueueOrdersCheck, dlqArgs},

		// orders.events — без DLQ (уведомления best-effort)
		{QueueOrderEvents, nil},

		// dlq.checks — сама DLQ очередь
		{QueueDLQChecks, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueOrdersCheck, RoutingKeyCheck, ExchangeOrders},
		{QueueOrderEvents, RoutingKeyEvent, ExchangeEvents},
		{QueueDLQChecks, RoutingKeyDLQChecks, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  PetStudio RabbitMQ Topology:

    petstudio.orders (direct)
    └── orders.check [routing: check]
            Consumer: Checker
            DLQ: dlq.checks

    petstudio.events (direct)
    └── orders.events [routing: event]
            Consumer: уведомления (внешний сервис)

    petstudio.dlq (direct)
    └── dlq.checks [routing: checks]
            Manual processing
  `
}
