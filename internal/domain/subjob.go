package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubJob — один inference job у провайдера.
//
// SubJob создаётся Submission-компонентом при отправке inference batch:
// ровно N штук на batch. Заказ владеет набором sub-jobs; sub-job не
// переживает свой заказ. Параметры запроса сохраняются как история —
// оркестратор их не интерпретирует.
type SubJob struct {
	// ID — уникальный идентификатор sub-job.
	ID uuid.UUID `json:"id"`

	// OrderID — ссылка на родительский заказ.
	OrderID uuid.UUID `json:"order_id"`

	// Batch — номер inference batch, к которому относится sub-job.
	// Агрегация учитывает только sub-jobs текущего batch заказа.
	Batch int `json:"batch"`

	// ExternalID — идентификатор job у провайдера.
	ExternalID string `json:"external_id"`

	// Status — последний известный статус в словаре провайдера.
	Status SubJobStatus `json:"status"`

	// Параметры запроса (снимок на момент отправки).
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumOutputs        int     `json:"num_outputs"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`

	// Output — URL сгенерированных изображений из выдачи провайдера.
	// Заполняется Check Worker'ом, когда провайдер сообщает succeeded.
	Output []string `json:"output,omitempty"`

	// CreatedAt — время создания sub-job.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если провайдер больше не изменит статус.
func (j *SubJob) IsFinished() bool {
	return j.Status.IsTerminal()
}
