// Package scheduler реализует poll sweep по активным заказам.
//
// Sweeper перечисляет заказы, ожидающие результата от провайдера
// (TRAINING, UPLOADING_MODEL, INFERING), и публикует по одной команде
// проверки на заказ в очередь orders.check. Сами проверки выполняет
// Check Worker.
//
// Структура:
//   - sweeper.go — основная логика Sweeper (Tick)
//   - cron.go    — расписание sweep (robfig/cron, SWEEP_SCHEDULE)
//
// Использование:
//
//	sw := scheduler.New(scheduler.Config{
//	    Orders:    orderRepo,
//	    Publisher: publisher,
//	    Logger:    logger,
//	})
//
//	// Вызывается по расписанию (default: @every 60s)
//	if err := sw.Tick(ctx); err != nil {
//	    logger.Error("sweep failed", "error", err)
//	}
//
// Leader Election:
//
// Sweeper не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Метод Tick() вызывается только лидером.
package scheduler
