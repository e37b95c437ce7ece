package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devgould/petstudio/internal/domain"
)

// ArtifactRepo — репозиторий для работы с артефактами результатов.
type ArtifactRepo struct {
	pool *pgxpool.Pool
}

// NewArtifactRepo создаёт новый ArtifactRepo.
func NewArtifactRepo(pool *pgxpool.Pool) *ArtifactRepo {
	return &ArtifactRepo{pool: pool}
}

// Create сохраняет запись об артефакте.
func (r *ArtifactRepo) Create(ctx context.Context, artifact *domain.ResultArtifact) error {
	query := `
		INSERT INTO result_artifacts (id, order_id, sub_job_id, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		artifact.ID,
		artifact.OrderID,
		artifact.SubJobID,
		artifact.URL,
		artifact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// ListByOrder возвращает артефакты заказа.
func (r *ArtifactRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.ResultArtifact, error) {
	query := `
		SELECT id, order_id, sub_job_id, url, created_at
		FROM result_artifacts
		WHERE order_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.ResultArtifact
	for rows.Next() {
		var a domain.ResultArtifact
		if err := rows.Scan(&a.ID, &a.OrderID, &a.SubJobID, &a.URL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// CountBySubJob возвращает число артефактов sub-job.
// Используется для идемпотентности: повторная выгрузка пропускает
// sub-jobs, чьи результаты уже сохранены.
func (r *ArtifactRepo) CountBySubJob(ctx context.Context, subJobID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM result_artifacts
		WHERE sub_job_id = $1
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, subJobID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count artifacts: %w", err)
	}
	return count, nil
}
