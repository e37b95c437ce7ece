package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/devgould/petstudio/internal/mq"
	"github.com/devgould/petstudio/internal/orchestrator"
)

// Default configuration values.
const defaultPrefetch = 5

// Checker выполняет одну проверку заказа.
// Реализуется orchestrator.Orchestrator.
type Checker interface {
	CheckOrder(ctx context.Context, orderID uuid.UUID) error
}

// Worker потребляет команды order.check и выполняет проверки заказов.
//
// Worker — stateless: всё состояние заказа живёт в БД, проверка
// идемпотентна, поэтому экземпляры масштабируются горизонтально
// и дубликаты команд безопасны.
type Worker struct {
	checker Checker
	conn    *mq.Connection

	consumer *mq.Consumer
	prefetch int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Checker — исполнитель проверок (Orchestrator).
	Checker Checker

	// Conn — соединение с RabbitMQ.
	Conn *mq.Connection

	// Prefetch — число одновременных проверок на экземпляр (default: 5).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		checker:  cfg.Checker,
		conn:     cfg.Conn,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Start запускает Worker: consumer для orders.check.
func (w *Worker) Start(ctx context.Context) error {
	if w.checker == nil {
		return ErrCheckerNotSet
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "prefetch", w.prefetch)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueOrdersCheck),
		Handler:  w.handleOrderCheck,
		Prefetch: w.prefetch,
		// Ошибку не возвращаем в очередь: сообщение уходит в DLQ,
		// следующий sweep опубликует новую проверку.
		RequeueOnError: false,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("check consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// handleOrderCheck обрабатывает одну команду order.check.
func (w *Worker) handleOrderCheck(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.OrderCheckPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse order.check payload", "error", err)
		return err
	}

	w.logger.Debug("received order.check", "order_id", payload.OrderID)

	if err := w.checker.CheckOrder(ctx, payload.OrderID); err != nil {
		// Заказ исчез — повторять нечего, ack
		if errors.Is(err, orchestrator.ErrOrderNotFound) {
			w.logger.Warn("order not found, dropping check", "order_id", payload.OrderID)
			return nil
		}
		w.logger.Error("order check failed", "order_id", payload.OrderID, "error", err)
		return err
	}

	return nil
}
