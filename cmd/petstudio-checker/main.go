// PetStudio Checker — выполняет проверки заказов.
//
// Checker:
//   - Получает команды order.check из RabbitMQ
//   - Опрашивает провайдера и двигает заказ по state machine
//   - Сохраняет модель и результаты в object storage (best-effort)
//   - Публикует события о финальных статусах
//
// Checkers масштабируются горизонтально: проверки идемпотентны.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devgould/petstudio/internal/mq"
	"github.com/devgould/petstudio/internal/orchestrator"
	"github.com/devgould/petstudio/internal/provider"
	"github.com/devgould/petstudio/internal/repo"
	"github.com/devgould/petstudio/internal/storage"
	"github.com/devgould/petstudio/internal/telemetry"
	"github.com/devgould/petstudio/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting petstudio-checker")

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

	// Репозитории
	orderRepo := repo.NewOrderRepo(pool)
	subJobRepo := repo.NewSubJobRepo(pool)
	artifactRepo := repo.NewArtifactRepo(pool)

	// RabbitMQ: без очереди checker не получает команды, fail-fast
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
	logger.Debug("topology ready", "topology", mq.TopologyInfo())

	publisher := mq.NewPublisher(mqConn, logger)

	// Object storage: best-effort, без него заказы всё равно доходят
	// до финальных статусов (артефакты доливаются upload-results)
	cfg := orchestrator.Config{
		Orders:    orderRepo,
		SubJobs:   subJobRepo,
		Artifacts: artifactRepo,
		Provider:  provider.NewFromEnv(),
		Events:    publisher,
		Logger:    logger,
	}

	if store, err := storage.NewS3Store(ctx); err != nil {
		logger.Warn("object storage not available, artifacts will not be persisted", "error", err)
	} else {
		cfg.Store = store
	}

	orch := orchestrator.New(cfg)

	// Запускаем worker
	w := worker.New(worker.Config{
		Checker: orch,
		Conn:    mqConn,
		Logger:  logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("CHECKER_PORT"); v != "" {
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

	// Останавливаем worker
	w.Stop()
	logger.Info("petstudio-checker stopped")
}
