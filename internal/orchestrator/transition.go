package orchestrator

import (
	"fmt"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/provider"
)

// Event — событие, двигающее заказ по state machine.
type Event string

const (
	// EventTrainingSubmitted — training job отправлен провайдеру.
	EventTrainingSubmitted Event = "training.submitted"

	// EventTrainingSucceeded — провайдер сообщил об успешном обучении.
	EventTrainingSucceeded Event = "training.succeeded"

	// EventTrainingFailed — обучение упало или отменено.
	EventTrainingFailed Event = "training.failed"

	// EventInferenceSubmitted — inference batch отправлен провайдеру.
	EventInferenceSubmitted Event = "inference.submitted"

	// EventBatchSucceeded — все sub-jobs текущего batch завершились успешно.
	EventBatchSucceeded Event = "batch.succeeded"

	// EventBatchFailed — хотя бы один sub-job упал, или batch пуст.
	EventBatchFailed Event = "batch.failed"

	// EventRestart — административный перезапуск всего заказа.
	EventRestart Event = "restart"

	// EventRestartInference — административный перезапуск inference
	// на уже обученной модели (новый batch).
	EventRestartInference Event = "restart.inference"
)

// transitions — таблица допустимых переходов: (статус, событие) → статус.
// Всё, чего нет в таблице, запрещено.
var transitions = map[domain.OrderStatus]map[Event]domain.OrderStatus{
	domain.OrderStatusPending: {
		EventTrainingSubmitted: domain.OrderStatusTraining,
		// Restart заказа, оставшегося в PENDING после отклонённой
		// отправки — no-op сброс, за которым следует новый submit.
		EventRestart: domain.OrderStatusPending,
	},
	domain.OrderStatusTraining: {
		EventTrainingSucceeded: domain.OrderStatusUploadingModel,
		EventTrainingFailed:    domain.OrderStatusFailed,
		EventRestart:           domain.OrderStatusPending,
	},
	domain.OrderStatusUploadingModel: {
		EventInferenceSubmitted: domain.OrderStatusInfering,
		EventRestart:            domain.OrderStatusPending,
	},
	domain.OrderStatusInfering: {
		EventBatchSucceeded:   domain.OrderStatusCompleted,
		EventBatchFailed:      domain.OrderStatusFailed,
		EventRestart:          domain.OrderStatusPending,
		EventRestartInference: domain.OrderStatusInfering,
	},
	domain.OrderStatusCompleted: {
		EventRestart:          domain.OrderStatusPending,
		EventRestartInference: domain.OrderStatusInfering,
	},
	domain.OrderStatusFailed: {
		EventRestart:          domain.OrderStatusPending,
		EventRestartInference: domain.OrderStatusInfering,
	},
}

// Next возвращает следующий статус заказа для события ev.
//
// Финальные статусы поглощают все события, кроме административных
// перезапусков: возвращается текущий статус без ошибки. Это делает
// повторную доставку команды проверки безопасной. Для нефинальных
// статусов недопустимое событие — ErrInvalidTransition.
func Next(current domain.OrderStatus, ev Event) (domain.OrderStatus, error) {
	if next, ok := transitions[current][ev]; ok {
		return next, nil
	}

	if current.IsTerminal() {
		return current, nil
	}

	return current, fmt.Errorf("%w: %s + %s", ErrInvalidTransition, current, ev)
}

// TrainingDecision — вердикт по training job после опроса провайдера.
type TrainingDecision int

const (
	// TrainingPending — обучение ещё идёт, ждём следующего sweep.
	TrainingPending TrainingDecision = iota

	// TrainingSucceeded — обучение завершено, есть артефакт модели.
	TrainingSucceeded

	// TrainingFailed — обучение упало, отменено или завершилось
	// без артефакта.
	TrainingFailed
)

// DecideTraining интерпретирует ответ провайдера по training job.
//
// succeeded без output — тоже провал: без артефакта модели
// inference запускать не на чем.
func DecideTraining(st provider.Status, output []string) TrainingDecision {
	switch st {
	case provider.StatusSucceeded:
		if len(output) == 0 {
			return TrainingFailed
		}
		return TrainingSucceeded
	case provider.StatusFailed, provider.StatusCanceled:
		return TrainingFailed
	default:
		return TrainingPending
	}
}
