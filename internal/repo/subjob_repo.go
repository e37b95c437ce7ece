package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devgould/petstudio/internal/domain"
)

// SubJobRepo — репозиторий для работы с sub-jobs.
type SubJobRepo struct {
	pool *pgxpool.Pool
}

// NewSubJobRepo создаёт новый SubJobRepo.
func NewSubJobRepo(pool *pgxpool.Pool) *SubJobRepo {
	return &SubJobRepo{pool: pool}
}

const subJobColumns = `id, order_id, batch, external_id, status, prompt,
	       negative_prompt, width, height, num_outputs,
	       num_inference_steps, guidance_scale, output, created_at`

// Create создаёт новый sub-job.
func (r *SubJobRepo) Create(ctx context.Context, job *domain.SubJob) error {
	outputJSON, err := json.Marshal(job.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		INSERT INTO sub_jobs (id, order_id, batch, external_id, status, prompt,
		                      negative_prompt, width, height, num_outputs,
		                      num_inference_steps, guidance_scale, output, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.OrderID,
		job.Batch,
		job.ExternalID,
		job.Status,
		job.Prompt,
		nullString(job.NegativePrompt),
		job.Width,
		job.Height,
		job.NumOutputs,
		job.NumInferenceSteps,
		job.GuidanceScale,
		outputJSON,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sub-job: %w", err)
	}
	return nil
}

// Update обновляет статус и output sub-job.
func (r *SubJobRepo) Update(ctx context.Context, job *domain.SubJob) error {
	outputJSON, err := json.Marshal(job.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		UPDATE sub_jobs
		SET status = $2, output = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, job.ID, job.Status, outputJSON)
	if err != nil {
		return fmt.Errorf("update sub-job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrderAndBatch возвращает sub-jobs заказа в указанном batch.
// Именно этот набор видит агрегатор: sub-jobs прошлых batch'ей — история.
func (r *SubJobRepo) ListByOrderAndBatch(ctx context.Context, orderID uuid.UUID, batch int) ([]domain.SubJob, error) {
	query := `
		SELECT ` + subJobColumns + `
		FROM sub_jobs
		WHERE order_id = $1 AND batch = $2
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, orderID, batch)
	if err != nil {
		return nil, fmt.Errorf("list sub-jobs by batch: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// ListByOrder возвращает все sub-jobs заказа, включая прошлые batch'и.
func (r *SubJobRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.SubJob, error) {
	query := `
		SELECT ` + subJobColumns + `
		FROM sub_jobs
		WHERE order_id = $1
		ORDER BY batch ASC, created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list sub-jobs: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// --- Helpers ---

// collect вычитывает все строки в список SubJob.
func (r *SubJobRepo) collect(rows pgx.Rows) ([]domain.SubJob, error) {
	var jobs []domain.SubJob
	for rows.Next() {
		job, err := r.scanSubJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// scanSubJobFromRows сканирует строку из rows в SubJob.
func (r *SubJobRepo) scanSubJobFromRows(rows pgx.Rows) (*domain.SubJob, error) {
	var job domain.SubJob
	var outputJSON []byte
	var negativePrompt *string

	err := rows.Scan(
		&job.ID,
		&job.OrderID,
		&job.Batch,
		&job.ExternalID,
		&job.Status,
		&job.Prompt,
		&negativePrompt,
		&job.Width,
		&job.Height,
		&job.NumOutputs,
		&job.NumInferenceSteps,
		&job.GuidanceScale,
		&outputJSON,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan sub-job: %w", err)
	}

	if err := applySubJobNullables(&job, outputJSON, negativePrompt); err != nil {
		return nil, err
	}
	return &job, nil
}

// applySubJobNullables переносит nullable-колонки в поля SubJob.
func applySubJobNullables(job *domain.SubJob, outputJSON []byte, negativePrompt *string) error {
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &job.Output); err != nil {
			return fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if negativePrompt != nil {
		job.NegativePrompt = *negativePrompt
	}
	return nil
}
