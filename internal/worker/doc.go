// Package worker потребляет команды проверки заказов из очереди.
//
// # Обзор
//
// Check Worker — stateless компонент, который выполняет проверки
// заказов, опубликованные Sweeper'ом. Worker отвечает за:
//
//   - Получение команд order.check из очереди RabbitMQ
//   - Вызов Orchestrator.CheckOrder для каждого заказа
//   - Ack/nack с учётом идемпотентности проверки
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди orders.check; prefetch ограничивает
// число одновременных проверок на экземпляр.
//
// # Обработка ошибок
//
// Ошибка проверки не возвращает сообщение в очередь: оно уходит в
// DLQ, а следующий sweep опубликует свежую команду для того же
// заказа. Пропавший заказ (ErrOrderNotFound) подтверждается без
// повторов — повторять нечего.
package worker
