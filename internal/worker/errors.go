package worker

import "errors"

// Ошибки воркера.
var (
	// ErrCheckerNotSet — воркер создан без Checker.
	ErrCheckerNotSet = errors.New("checker not set")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
