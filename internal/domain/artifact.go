package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResultArtifact — сгенерированное изображение, сохранённое в наш
// object storage.
//
// Создаётся агрегатором по одному на каждый output успешного sub-job.
// Сохранение best-effort: заказ может стать COMPLETED и без артефактов,
// если storage был недоступен (см. команду order upload-results).
type ResultArtifact struct {
	// ID — уникальный идентификатор артефакта.
	ID uuid.UUID `json:"id"`

	// OrderID — ссылка на заказ.
	OrderID uuid.UUID `json:"order_id"`

	// SubJobID — sub-job, из выдачи которого скачано изображение.
	SubJobID uuid.UUID `json:"sub_job_id"`

	// URL — адрес изображения в object storage.
	URL string `json:"url"`

	// CreatedAt — время сохранения.
	CreatedAt time.Time `json:"created_at"`
}

// NewResultArtifact создаёт артефакт для сохранённого изображения.
func NewResultArtifact(orderID, subJobID uuid.UUID, url string) *ResultArtifact {
	return &ResultArtifact{
		ID:        uuid.New(),
		OrderID:   orderID,
		SubJobID:  subJobID,
		URL:       url,
		CreatedAt: time.Now(),
	}
}
