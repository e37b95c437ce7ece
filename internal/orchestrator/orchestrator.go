package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/provider"
	"github.com/devgould/petstudio/internal/repo"
	"github.com/devgould/petstudio/internal/telemetry"
)

// OrderStore — доступ к заказам.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
}

// SubJobStore — доступ к sub-jobs.
type SubJobStore interface {
	Create(ctx context.Context, job *domain.SubJob) error
	Update(ctx context.Context, job *domain.SubJob) error
	ListByOrderAndBatch(ctx context.Context, orderID uuid.UUID, batch int) ([]domain.SubJob, error)
}

// ArtifactStore — доступ к артефактам результатов.
type ArtifactStore interface {
	Create(ctx context.Context, artifact *domain.ResultArtifact) error
	CountBySubJob(ctx context.Context, subJobID uuid.UUID) (int, error)
}

// ProviderClient — внешний job API провайдера.
type ProviderClient interface {
	CreateJob(ctx context.Context, req *provider.CreateJobRequest) (*provider.Job, error)
	GetJob(ctx context.Context, externalID string) (*provider.Job, error)
}

// ObjectStore — наше object storage для долговременных артефактов.
type ObjectStore interface {
	CopyFromURL(ctx context.Context, srcURL, key string) (string, error)
}

// EventPublisher — публикация событий о финальных статусах.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, orderID uuid.UUID, event string) error
}

// Orchestrator выполняет проверку заказов и двигает их по state machine.
//
// Все операции идемпотентны: повторная или конкурентная проверка
// одного заказа не ломает инварианты (конвергентные переходы,
// агрегация пересчитывается с нуля, last-write-wins в БД).
type Orchestrator struct {
	orders    OrderStore
	subJobs   SubJobStore
	artifacts ArtifactStore
	provider  ProviderClient

	// store опционален: без него артефакты не сохраняются,
	// заказы всё равно доходят до финальных статусов.
	store ObjectStore

	// events опционален: уведомления fire-and-forget.
	events EventPublisher

	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	Orders    OrderStore
	SubJobs   SubJobStore
	Artifacts ArtifactStore
	Provider  ProviderClient
	Store     ObjectStore
	Events    EventPublisher
	Logger    *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		orders:    cfg.Orders,
		subJobs:   cfg.SubJobs,
		artifacts: cfg.Artifacts,
		provider:  cfg.Provider,
		store:     cfg.Store,
		events:    cfg.Events,
		logger:    logger,
	}
}

// CheckOrder выполняет одну проверку заказа: опрашивает провайдера
// и применяет все переходы, которые следуют из его ответа.
//
// Для финальных заказов — no-op. Ошибка возвращается только если
// проверку имеет смысл повторить; следующий sweep в любом случае
// опубликует новую.
func (o *Orchestrator) CheckOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("load order: %w", err)
	}

	telemetry.ChecksTotal.WithLabelValues(string(order.Status)).Inc()
	logger := telemetry.WithOrderID(o.logger, order.ID.String())

	switch order.Status {
	case domain.OrderStatusPending:
		return o.SubmitTraining(ctx, order)

	case domain.OrderStatusTraining:
		return o.checkTraining(ctx, order, logger)

	case domain.OrderStatusUploadingModel:
		// Заказ упал между сохранением модели и отправкой batch —
		// доводим до INFERING.
		return o.advanceFromUpload(ctx, order, logger)

	case domain.OrderStatusInfering:
		return o.checkInference(ctx, order, logger)

	default:
		logger.Debug("order already terminal", "status", order.Status)
		return nil
	}
}

// checkTraining опрашивает training job и применяет вердикт.
func (o *Orchestrator) checkTraining(ctx context.Context, order *domain.Order, logger *slog.Logger) error {
	job, err := o.provider.GetJob(ctx, order.TrainingJobID)
	if err != nil {
		return fmt.Errorf("poll training job: %w", err)
	}

	order.TrainingJobStatus = domain.SubJobStatus(job.Status)

	switch DecideTraining(job.Status, job.Output) {
	case TrainingPending:
		// Зеркалируем статус провайдера для оператора.
		if err := o.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("persist training status: %w", err)
		}
		return nil

	case TrainingFailed:
		logger.Warn("training failed",
			"provider_status", job.Status,
			"provider_error", job.Error,
		)
		return o.fail(ctx, order, EventTrainingFailed, logger)

	default: // TrainingSucceeded
		next, err := Next(order.Status, EventTrainingSucceeded)
		if err != nil {
			return err
		}
		order.Status = next
		order.MarkUploadingModel(job.Output[0])
		if err := o.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("persist training success: %w", err)
		}

		logger.Info("training succeeded", "model_url", order.ModelURL)
		return o.advanceFromUpload(ctx, order, logger)
	}
}

// advanceFromUpload сохраняет артефакт модели (best-effort) и
// отправляет inference batch.
func (o *Orchestrator) advanceFromUpload(ctx context.Context, order *domain.Order, logger *slog.Logger) error {
	if order.TrainedModelURL == "" && o.store != nil {
		key := fmt.Sprintf("%s/trained-model.zip", order.ID)
		url, err := o.store.CopyFromURL(ctx, order.ModelURL, key)
		if err != nil {
			// Модель остаётся доступной по URL провайдера;
			// не блокируем заказ из-за storage.
			telemetry.ArtifactUploadsTotal.WithLabelValues("error").Inc()
			logger.Error("persist model failed", "error", err)
		} else {
			telemetry.ArtifactUploadsTotal.WithLabelValues("ok").Inc()
			order.TrainedModelURL = url
		}
	}

	return o.SubmitInferenceBatch(ctx, order)
}

// checkInference обновляет статусы sub-jobs текущего batch
// и применяет агрегированный исход.
func (o *Orchestrator) checkInference(ctx context.Context, order *domain.Order, logger *slog.Logger) error {
	jobs, err := o.subJobs.ListByOrderAndBatch(ctx, order.ID, order.InferenceBatch)
	if err != nil {
		return fmt.Errorf("list sub-jobs: %w", err)
	}

	for i := range jobs {
		sub := &jobs[i]
		if sub.IsFinished() {
			continue
		}

		subLogger := telemetry.WithSubJobID(logger, sub.ID.String())

		pj, err := o.provider.GetJob(ctx, sub.ExternalID)
		if err != nil {
			// Ошибка по одному sub-job не прерывает проверку
			// остальных; агрегат посчитается по последнему
			// известному статусу.
			subLogger.Error("poll sub-job failed", "error", err)
			continue
		}

		if domain.SubJobStatus(pj.Status) == sub.Status {
			continue
		}

		sub.Status = domain.SubJobStatus(pj.Status)
		sub.Output = pj.Output
		if err := o.subJobs.Update(ctx, sub); err != nil {
			subLogger.Error("persist sub-job failed", "error", err)
		}
	}

	switch AggregateBatch(jobs) {
	case BatchPending:
		return nil

	case BatchFailed:
		return o.fail(ctx, order, EventBatchFailed, logger)

	default: // BatchCompleted
		o.persistResults(ctx, order, jobs, logger)

		if _, err := Next(order.Status, EventBatchSucceeded); err != nil {
			return err
		}
		order.MarkCompleted()
		if err := o.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("persist completion: %w", err)
		}

		telemetry.TerminalTransitionsTotal.WithLabelValues(string(domain.OrderStatusCompleted)).Inc()
		logger.Info("order completed", "batch", order.InferenceBatch)
		o.notify(ctx, order.ID, "order.completed", logger)
		return nil
	}
}

// fail переводит заказ в FAILED и уведомляет.
func (o *Orchestrator) fail(ctx context.Context, order *domain.Order, ev Event, logger *slog.Logger) error {
	if _, err := Next(order.Status, ev); err != nil {
		return err
	}
	order.MarkFailed()

	if err := o.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("persist failure: %w", err)
	}

	telemetry.TerminalTransitionsTotal.WithLabelValues(string(domain.OrderStatusFailed)).Inc()
	logger.Warn("order failed", "event", ev)
	o.notify(ctx, order.ID, "order.failed", logger)
	return nil
}

// persistResults сохраняет изображения успешных sub-jobs в object
// storage. Best-effort: ошибки логируются и не влияют на переход
// заказа; повторную выгрузку запускает CLI upload-results.
func (o *Orchestrator) persistResults(ctx context.Context, order *domain.Order, jobs []domain.SubJob, logger *slog.Logger) {
	if o.store == nil {
		return
	}

	for i := range jobs {
		sub := &jobs[i]
		if sub.Status != domain.SubJobStatusSucceeded {
			continue
		}

		// Уже выгружали — пропускаем.
		count, err := o.artifacts.CountBySubJob(ctx, sub.ID)
		if err != nil {
			logger.Error("count artifacts failed", "sub_job_id", sub.ID, "error", err)
			continue
		}
		if count > 0 {
			continue
		}

		for n, srcURL := range sub.Output {
			key := fmt.Sprintf("%s/results/%d/%s-%d.jpg", order.ID, sub.Batch, sub.ID, n)
			url, err := o.store.CopyFromURL(ctx, srcURL, key)
			if err != nil {
				telemetry.ArtifactUploadsTotal.WithLabelValues("error").Inc()
				logger.Error("persist result failed",
					"sub_job_id", sub.ID,
					"src", srcURL,
					"error", err,
				)
				continue
			}
			telemetry.ArtifactUploadsTotal.WithLabelValues("ok").Inc()

			artifact := domain.NewResultArtifact(order.ID, sub.ID, url)
			if err := o.artifacts.Create(ctx, artifact); err != nil {
				logger.Error("persist artifact record failed",
					"sub_job_id", sub.ID,
					"error", err,
				)
			}
		}
	}
}

// UploadResults повторно запускает сохранение артефактов заказа.
// Вызывается из CLI, когда storage был недоступен в момент завершения.
func (o *Orchestrator) UploadResults(ctx context.Context, orderID uuid.UUID) error {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("load order: %w", err)
	}

	jobs, err := o.subJobs.ListByOrderAndBatch(ctx, order.ID, order.InferenceBatch)
	if err != nil {
		return fmt.Errorf("list sub-jobs: %w", err)
	}

	o.persistResults(ctx, order, jobs, telemetry.WithOrderID(o.logger, order.ID.String()))
	return nil
}

// Restart перезапускает заказ целиком: сброс в PENDING и новая
// отправка training. Административная операция.
func (o *Orchestrator) Restart(ctx context.Context, orderID uuid.UUID) error {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("load order: %w", err)
	}

	next, err := Next(order.Status, EventRestart)
	if err != nil {
		return err
	}
	order.Status = next

	// Фиксируем PENDING до отправки: если create упадёт, заказ
	// останется в PENDING и restart можно повторить.
	if err := o.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("persist restart: %w", err)
	}

	return o.SubmitTraining(ctx, order)
}

// RestartInference перезапускает только inference: новый batch на
// уже обученной модели. Административная операция.
func (o *Orchestrator) RestartInference(ctx context.Context, orderID uuid.UUID) error {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("load order: %w", err)
	}

	if order.ModelURL == "" && order.TrainedModelURL == "" {
		return fmt.Errorf("%w: %s", ErrModelNotReady, orderID)
	}

	if _, err := Next(order.Status, EventRestartInference); err != nil {
		return err
	}

	return o.SubmitInferenceBatch(ctx, order)
}

// notify публикует событие о финальном статусе. Fire-and-forget:
// ошибка публикации логируется и не влияет на заказ.
func (o *Orchestrator) notify(ctx context.Context, orderID uuid.UUID, event string, logger *slog.Logger) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishOrderEvent(ctx, orderID, event); err != nil {
		logger.Warn("publish order event failed", "event", event, "error", err)
	}
}
