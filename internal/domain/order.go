package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order — заказ клиента: одна связка "обучение модели → генерация изображений".
//
// Order создаётся интейком в статусе PENDING после загрузки фотографий.
// Дальше им владеет исключительно оркестратор: статус меняется только
// через переходы state machine (orchestrator.Next).
type Order struct {
	// ID — уникальный идентификатор заказа.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус выполнения.
	Status OrderStatus `json:"status"`

	// TrainingImagesZipURL — ZIP с фотографиями клиента (вход для обучения).
	TrainingImagesZipURL string `json:"training_images_zip_url,omitempty"`

	// TrainingJobID — внешний идентификатор training job у провайдера.
	TrainingJobID string `json:"training_job_id,omitempty"`

	// TrainingJobStatus — последний известный статус training job
	// в словаре провайдера. Зеркалируется для видимости оператору.
	TrainingJobStatus SubJobStatus `json:"training_job_status,omitempty"`

	// ModelURL — URL артефакта модели в выдаче провайдера.
	ModelURL string `json:"model_url,omitempty"`

	// TrainedModelURL — URL модели после сохранения в наш object storage.
	TrainedModelURL string `json:"trained_model_url,omitempty"`

	// InferenceBatch — номер текущего inference batch (начиная с 1).
	// Перезапуск inference создаёт новый batch; старые sub-jobs
	// остаются в БД как история и в агрегации не участвуют.
	InferenceBatch int `json:"inference_batch"`

	// TrainingStartedAt — время отправки training job провайдеру.
	// Nil, если обучение ещё не запускалось.
	TrainingStartedAt *time.Time `json:"training_started_at,omitempty"`

	// CreatedAt — время создания заказа.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если заказ в финальном статусе.
func (o *Order) IsFinished() bool {
	return o.Status.IsTerminal()
}

// MarkTraining фиксирует отправленный training job и переводит заказ в TRAINING.
func (o *Order) MarkTraining(jobID string, jobStatus SubJobStatus) {
	now := time.Now()
	o.Status = OrderStatusTraining
	o.TrainingJobID = jobID
	o.TrainingJobStatus = jobStatus
	o.TrainingStartedAt = &now
}

// MarkUploadingModel фиксирует успешное обучение и URL модели у провайдера.
func (o *Order) MarkUploadingModel(modelURL string) {
	o.Status = OrderStatusUploadingModel
	o.TrainingJobStatus = SubJobStatusSucceeded
	o.ModelURL = modelURL
}

// MarkInfering переводит заказ в INFERING с новым номером batch.
func (o *Order) MarkInfering(batch int) {
	o.Status = OrderStatusInfering
	o.InferenceBatch = batch
}

// MarkCompleted переводит заказ в COMPLETED.
func (o *Order) MarkCompleted() {
	o.Status = OrderStatusCompleted
}

// MarkFailed переводит заказ в FAILED.
func (o *Order) MarkFailed() {
	o.Status = OrderStatusFailed
}
