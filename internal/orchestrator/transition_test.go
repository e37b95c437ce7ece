package orchestrator

import (
	"errors"
	"testing"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/provider"
)

func TestNext_ValidTransitions(t *testing.T) {
	tests := []struct {
		current  domain.OrderStatus
		event    Event
		expected domain.OrderStatus
	}{
		{domain.OrderStatusPending, EventTrainingSubmitted, domain.OrderStatusTraining},
		{domain.OrderStatusTraining, EventTrainingSucceeded, domain.OrderStatusUploadingModel},
		{domain.OrderStatusTraining, EventTrainingFailed, domain.OrderStatusFailed},
		{domain.OrderStatusUploadingModel, EventInferenceSubmitted, domain.OrderStatusInfering},
		{domain.OrderStatusInfering, EventBatchSucceeded, domain.OrderStatusCompleted},
		{domain.OrderStatusInfering, EventBatchFailed, domain.OrderStatusFailed},
		{domain.OrderStatusPending, EventRestart, domain.OrderStatusPending},
		{domain.OrderStatusTraining, EventRestart, domain.OrderStatusPending},
		{domain.OrderStatusFailed, EventRestart, domain.OrderStatusPending},
		{domain.OrderStatusCompleted, EventRestartInference, domain.OrderStatusInfering},
		{domain.OrderStatusFailed, EventRestartInference, domain.OrderStatusInfering},
	}

	for _, tt := range tests {
		next, err := Next(tt.current, tt.event)
		if err != nil {
			t.Errorf("%s + %s: unexpected error: %v", tt.current, tt.event, err)
			continue
		}
		if next != tt.expected {
			t.Errorf("%s + %s: expected %s, got %s", tt.current, tt.event, tt.expected, next)
		}
	}
}

func TestNext_TerminalAbsorbsEvents(t *testing.T) {
	// Финальные статусы поглощают обычные события без ошибки
	for _, status := range []domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusFailed} {
		for _, ev := range []Event{EventTrainingSucceeded, EventTrainingFailed, EventBatchSucceeded, EventBatchFailed} {
			next, err := Next(status, ev)
			if err != nil {
				t.Errorf("%s + %s: unexpected error: %v", status, ev, err)
			}
			if next != status {
				t.Errorf("%s + %s: expected no-op, got %s", status, ev, next)
			}
		}
	}
}

func TestNext_InvalidTransition(t *testing.T) {
	tests := []struct {
		current domain.OrderStatus
		event   Event
	}{
		// нельзя перескочить стадию
		{domain.OrderStatusPending, EventBatchSucceeded},
		{domain.OrderStatusPending, EventTrainingSucceeded},
		{domain.OrderStatusTraining, EventBatchSucceeded},
		{domain.OrderStatusUploadingModel, EventTrainingSucceeded},
		// повторная отправка training из TRAINING запрещена
		{domain.OrderStatusTraining, EventTrainingSubmitted},
	}

	for _, tt := range tests {
		next, err := Next(tt.current, tt.event)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s + %s: expected ErrInvalidTransition, got %v", tt.current, tt.event, err)
		}
		if next != tt.current {
			t.Errorf("%s + %s: status must not change on error, got %s", tt.current, tt.event, next)
		}
	}
}

func TestDecideTraining(t *testing.T) {
	tests := []struct {
		name     string
		status   provider.Status
		output   []string
		expected TrainingDecision
	}{
		{"starting", provider.StatusStarting, nil, TrainingPending},
		{"processing", provider.StatusProcessing, nil, TrainingPending},
		{"succeeded with model", provider.StatusSucceeded, []string{"https://x/model.zip"}, TrainingSucceeded},
		{"succeeded without output", provider.StatusSucceeded, nil, TrainingFailed},
		{"failed", provider.StatusFailed, nil, TrainingFailed},
		{"canceled", provider.StatusCanceled, nil, TrainingFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideTraining(tt.status, tt.output); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
