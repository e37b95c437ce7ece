package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devgould/petstudio/internal/domain"
)

// OrderRepo — репозиторий для работы с заказами.
type OrderRepo struct {
	pool *pgxpool.Pool
}

// NewOrderRepo создаёт новый OrderRepo.
func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, status, training_images_zip_url, training_job_id,
	       training_job_status, model_url, trained_model_url,
	       inference_batch, training_started_at, created_at`

// Create создаёт новый заказ.
func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, status, training_images_zip_url, training_job_id,
		                    training_job_status, model_url, trained_model_url,
		                    inference_batch, training_started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.Status,
		nullString(order.TrainingImagesZipURL),
		nullString(order.TrainingJobID),
		nullString(string(order.TrainingJobStatus)),
		nullString(order.ModelURL),
		nullString(order.TrainedModelURL),
		order.InferenceBatch,
		order.TrainingStartedAt,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID возвращает заказ по ID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	return r.scanOrder(r.pool.QueryRow(ctx, query, id))
}

// Update обновляет изменяемые поля заказа.
func (r *OrderRepo) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, training_job_id = $3, training_job_status = $4,
		    model_url = $5, trained_model_url = $6, inference_batch = $7,
		    training_started_at = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		order.ID,
		order.Status,
		nullString(order.TrainingJobID),
		nullString(string(order.TrainingJobStatus)),
		nullString(order.ModelURL),
		nullString(order.TrainedModelURL),
		order.InferenceBatch,
		order.TrainingStartedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByStatuses возвращает заказы в любом из указанных статусов,
// старые первыми. Используется Sweeper'ом для обхода активных заказов.
func (r *OrderRepo) ListByStatuses(ctx context.Context, statuses []domain.OrderStatus, limit int) ([]domain.Order, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, values, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders by statuses: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := r.scanOrderFromRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// ListRecent возвращает последние заказы для CLI.
func (r *OrderRepo) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := r.scanOrderFromRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// --- Helpers ---

// scanOrder сканирует одну строку в Order.
func (r *OrderRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var zipURL *string
	var jobID *string
	var jobStatus *string
	var modelURL *string
	var trainedURL *string

	err := row.Scan(
		&order.ID,
		&order.Status,
		&zipURL,
		&jobID,
		&jobStatus,
		&modelURL,
		&trainedURL,
		&order.InferenceBatch,
		&order.TrainingStartedAt,
		&order.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	applyOrderNullables(&order, zipURL, jobID, jobStatus, modelURL, trainedURL)
	return &order, nil
}

// scanOrderFromRows сканирует строку из rows в Order.
func (r *OrderRepo) scanOrderFromRows(rows pgx.Rows) (*domain.Order, error) {
	var order domain.Order
	var zipURL *string
	var jobID *string
	var jobStatus *string
	var modelURL *string
	var trainedURL *string

	err := rows.Scan(
		&order.ID,
		&order.Status,
		&zipURL,
		&jobID,
		&jobStatus,
		&modelURL,
		&trainedURL,
		&order.InferenceBatch,
		&order.TrainingStartedAt,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	applyOrderNullables(&order, zipURL, jobID, jobStatus, modelURL, trainedURL)
	return &order, nil
}

// applyOrderNullables переносит nullable-колонки в поля Order.
func applyOrderNullables(order *domain.Order, zipURL, jobID, jobStatus, modelURL, trainedURL *string) {
	if zipURL != nil {
		order.TrainingImagesZipURL = *zipURL
	}
	if jobID != nil {
		order.TrainingJobID = *jobID
	}
	if jobStatus != nil {
		order.TrainingJobStatus = domain.SubJobStatus(*jobStatus)
	}
	if modelURL != nil {
		order.ModelURL = *modelURL
	}
	if trainedURL != nil {
		order.TrainedModelURL = *trainedURL
	}
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
