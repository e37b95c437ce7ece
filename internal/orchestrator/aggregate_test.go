package orchestrator

import (
	"testing"

	"github.com/devgould/petstudio/internal/domain"
)

func subs(statuses ...domain.SubJobStatus) []domain.SubJob {
	jobs := make([]domain.SubJob, len(statuses))
	for i, s := range statuses {
		jobs[i].Status = s
	}
	return jobs
}

func TestAggregateBatch(t *testing.T) {
	tests := []struct {
		name     string
		jobs     []domain.SubJob
		expected BatchOutcome
	}{
		{"empty batch is a failure", nil, BatchFailed},
		{"all succeeded", subs(domain.SubJobStatusSucceeded, domain.SubJobStatusSucceeded), BatchCompleted},
		{"still running", subs(domain.SubJobStatusSucceeded, domain.SubJobStatusProcessing), BatchPending},
		{"all starting", subs(domain.SubJobStatusStarting, domain.SubJobStatusStarting), BatchPending},
		{"one failed fails the batch", subs(domain.SubJobStatusSucceeded, domain.SubJobStatusFailed), BatchFailed},
		{"canceled fails the batch", subs(domain.SubJobStatusCanceled), BatchFailed},
		// провал не ждёт завершения остальных
		{"failed while others run", subs(domain.SubJobStatusProcessing, domain.SubJobStatusFailed, domain.SubJobStatusStarting), BatchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateBatch(tt.jobs); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAggregateBatch_Deterministic(t *testing.T) {
	// Пересчёт с нуля: повторный вызов на том же наборе даёт тот же ответ
	jobs := subs(domain.SubJobStatusSucceeded, domain.SubJobStatusProcessing)
	first := AggregateBatch(jobs)
	for i := 0; i < 10; i++ {
		if got := AggregateBatch(jobs); got != first {
			t.Fatalf("aggregate changed between calls: %v != %v", got, first)
		}
	}
}
