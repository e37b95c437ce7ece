package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrOrderNotFound — заказ не найден в БД.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition — событие недопустимо в текущем статусе заказа.
	ErrInvalidTransition = errors.New("invalid order transition")

	// ErrModelNotReady — у заказа нет обученной модели,
	// перезапуск inference невозможен.
	ErrModelNotReady = errors.New("order has no trained model")
)
