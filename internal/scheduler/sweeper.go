package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/telemetry"
)

// OrderLister — выборка активных заказов.
type OrderLister interface {
	ListByStatuses(ctx context.Context, statuses []domain.OrderStatus, limit int) ([]domain.Order, error)
}

// CheckPublisher — публикация команд проверки.
type CheckPublisher interface {
	PublishOrderCheck(ctx context.Context, orderID uuid.UUID) error
}

// Sweeper публикует команды проверки для всех активных заказов.
type Sweeper struct {
	orders    OrderLister
	publisher CheckPublisher
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Sweeper.
type Config struct {
	Orders    OrderLister
	Publisher CheckPublisher
	Logger    *slog.Logger
	BatchSize int // количество заказов за один тик (default: 500)
}

// New создаёт новый Sweeper.
func New(cfg Config) *Sweeper {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		orders:    cfg.Orders,
		publisher: cfg.Publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один sweep.
//
// 1. Перечисляет заказы в статусах SweepStatuses
// 2. Публикует ровно одну команду order.check на заказ
//
// Ошибка публикации по одному заказу не блокирует остальные:
// заказ останется активным и попадёт в следующий sweep. Дубликаты
// команд безопасны — проверка идемпотентна.
func (s *Sweeper) Tick(ctx context.Context) error {
	telemetry.SweepsTotal.Inc()

	orders, err := s.orders.ListByStatuses(ctx, domain.SweepStatuses, s.batchSize)
	if err != nil {
		return fmt.Errorf("list active orders: %w", err)
	}

	if len(orders) == 0 {
		return nil
	}

	s.logger.Debug("sweep found active orders", "count", len(orders))

	var published int
	for i := range orders {
		order := &orders[i]

		if err := s.publisher.PublishOrderCheck(ctx, order.ID); err != nil {
			s.logger.Error("failed to publish order check",
				"order_id", order.ID,
				"status", order.Status,
				"error", err,
			)
			continue
		}

		telemetry.ChecksEnqueuedTotal.Inc()
		published++
	}

	s.logger.Info("sweep completed",
		"active", len(orders),
		"published", published,
	)

	return nil
}
