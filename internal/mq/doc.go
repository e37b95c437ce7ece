// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - order.check — заказ нужно проверить (sweep tick)
//   - order.event — заказ перешёл в финальный статус (уведомления)
//
// Exchanges:
//   - petstudio.orders — команды проверки заказов
//   - petstudio.events — события жизненного цикла заказов
//   - petstudio.dlq    — dead letter queue
package mq
