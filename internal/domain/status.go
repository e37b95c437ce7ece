package domain

// OrderStatus — статус выполнения заказа.
//
// Жизненный цикл:
//
//	PENDING → TRAINING → UPLOADING_MODEL → INFERING → COMPLETED
//	                                               ↘ FAILED (из любого промежуточного)
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, обучение ещё не запущено.
	OrderStatusPending OrderStatus = "PENDING"

	// OrderStatusTraining — training job отправлен провайдеру и выполняется.
	OrderStatusTraining OrderStatus = "TRAINING"

	// OrderStatusUploadingModel — обучение завершилось, артефакт модели
	// скачивается и сохраняется в object storage.
	OrderStatusUploadingModel OrderStatus = "UPLOADING_MODEL"

	// OrderStatusInfering — inference batch отправлен, sub-jobs выполняются.
	OrderStatusInfering OrderStatus = "INFERING"

	// OrderStatusCompleted — все sub-jobs текущего batch завершились успешно.
	OrderStatusCompleted OrderStatus = "COMPLETED"

	// OrderStatusFailed — обучение или хотя бы один sub-job завершился ошибкой.
	OrderStatusFailed OrderStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
// Финальные статусы не принимают дальнейших событий.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// SweepStatuses — статусы, которые Sweeper перечисляет каждый тик.
// UPLOADING_MODEL включён, чтобы заказ, упавший между сохранением
// модели и отправкой batch, был подхвачен после рестарта.
var SweepStatuses = []OrderStatus{
	OrderStatusTraining,
	OrderStatusUploadingModel,
	OrderStatusInfering,
}

// SubJobStatus — статус sub-job в словаре провайдера.
//
// Провайдер сообщает: starting → processing → succeeded | failed | canceled.
// Мы зеркалируем его значения без переименования.
type SubJobStatus string

const (
	SubJobStatusStarting   SubJobStatus = "starting"
	SubJobStatusProcessing SubJobStatus = "processing"
	SubJobStatusSucceeded  SubJobStatus = "succeeded"
	SubJobStatusFailed     SubJobStatus = "failed"
	SubJobStatusCanceled   SubJobStatus = "canceled"
)

// IsTerminal возвращает true, если провайдер больше не изменит статус.
func (s SubJobStatus) IsTerminal() bool {
	switch s {
	case SubJobStatusSucceeded, SubJobStatusFailed, SubJobStatusCanceled:
		return true
	default:
		return false
	}
}
