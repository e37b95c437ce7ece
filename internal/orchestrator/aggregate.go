package orchestrator

import "github.com/devgould/petstudio/internal/domain"

// BatchOutcome — агрегированный результат inference batch.
type BatchOutcome int

const (
	// BatchPending — есть незавершённые sub-jobs, решение отложено.
	BatchPending BatchOutcome = iota

	// BatchCompleted — все sub-jobs batch завершились успешно.
	BatchCompleted

	// BatchFailed — хотя бы один sub-job упал/отменён, либо batch пуст.
	BatchFailed
)

// AggregateBatch вычисляет исход batch по полному набору его sub-jobs.
//
// Правило пересчитывается с нуля при каждом вызове — никакого
// инкрементального состояния, поэтому повторные и конкурентные
// проверки дают один и тот же ответ:
//   - пустой набор → BatchFailed (batch не был отправлен целиком);
//   - любой failed/canceled → BatchFailed, не дожидаясь остальных;
//   - все succeeded → BatchCompleted;
//   - иначе → BatchPending.
func AggregateBatch(jobs []domain.SubJob) BatchOutcome {
	if len(jobs) == 0 {
		return BatchFailed
	}

	allSucceeded := true
	for i := range jobs {
		switch jobs[i].Status {
		case domain.SubJobStatusFailed, domain.SubJobStatusCanceled:
			return BatchFailed
		case domain.SubJobStatusSucceeded:
			// ok
		default:
			allSucceeded = false
		}
	}

	if allSucceeded {
		return BatchCompleted
	}
	return BatchPending
}
