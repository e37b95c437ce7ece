// PetStudio Sweeper — периодический sweep по активным заказам.
//
// Sweeper:
//   - По расписанию (SWEEP_SCHEDULE, default @every 60s) перечисляет
//     заказы, ожидающие результата от провайдера
//   - Публикует команду order.check на каждый заказ в RabbitMQ
//   - Leader election через pg_try_advisory_lock: в кластере
//     sweep выполняет только один инстанс
//
// Сами проверки выполняет petstudio-checker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devgould/petstudio/internal/mq"
	"github.com/devgould/petstudio/internal/repo"
	"github.com/devgould/petstudio/internal/scheduler"
	"github.com/devgould/petstudio/internal/telemetry"
)

const sweepLockKey int64 = 640641

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting petstudio-sweeper")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	orderRepo := repo.NewOrderRepo(pool)

	// RabbitMQ: без очереди sweeper бесполезен, поэтому fail-fast
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	publisher := mq.NewPublisher(mqConn, logger)

	sweeper := scheduler.New(scheduler.Config{
		Orders:    orderRepo,
		Publisher: publisher,
		Logger:    logger,
	})

	spec := scheduler.ScheduleSpec()
	if err := scheduler.ValidateSpec(spec); err != nil {
		logger.Error("invalid sweep schedule", "error", err)
		os.Exit(1)
	}

	// Leader election: тик выполняет только держатель advisory lock.
	// Лок живёт в рамках сессии pool — при падении инстанса Postgres
	// отпускает его сам, и лидером становится другой sweeper.
	var leaderMu sync.Mutex
	var hasLock bool
	defer func() {
		if hasLock {
			_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", sweepLockKey)
		}
	}()

	c := scheduler.NewCron()
	_, err = c.AddFunc(spec, func() {
		leaderMu.Lock()
		defer leaderMu.Unlock()

		if !hasLock {
			var ok bool
			if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", sweepLockKey).Scan(&ok); err != nil {
				logger.Error("leader lock error", "error", err)
				return
			}
			hasLock = ok
		}

		if !hasLock {
			// не лидер — пропускаем тик
			return
		}

		if err := sweeper.Tick(ctx); err != nil {
			logger.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("failed to schedule sweep", "error", err)
		os.Exit(1)
	}

	c.Start()
	defer c.Stop()
	logger.Info("sweep scheduled", "spec", spec)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SWEEPER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("petstudio-sweeper stopped")
}
