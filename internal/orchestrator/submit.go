package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/provider"
	"github.com/devgould/petstudio/internal/telemetry"
)

// defaultModelVersion — версия dreambooth-модели у провайдера.
// Одна и та же версия обучает модель и выполняет inference.
const defaultModelVersion = "641855b7fa641ef22cb5e1db8c529b29f4b62f1d48d4c86ada1db54dc7a89e56"

// classDataZipURL — общий набор class images для prior preservation.
// Один на всех клиентов, собран заранее.
const classDataZipURL = "https://deving-pet-ai.s3.amazonaws.com/class_images_dog.zip"

// Параметры inference, одинаковые для всех prompts.
const (
	inferenceWidth    = 512
	inferenceHeight   = 512
	inferenceOutputs  = 10
	inferenceSteps    = 50
	inferenceGuidance = 7.5
	inferenceStrength = 0.8
)

// modelVersion возвращает версию модели, с override через
// TRAINING_MODEL_VERSION.
func modelVersion() string {
	if v := os.Getenv("TRAINING_MODEL_VERSION"); v != "" {
		return v
	}
	return defaultModelVersion
}

// inferencePrompt — один prompt из фиксированного набора batch.
type inferencePrompt struct {
	prompt         string
	negativePrompt string
}

// inferencePrompts — фиксированный набор из 6 prompts.
// `sks dog` — идентификатор, на который обучена модель клиента.
var inferencePrompts = []inferencePrompt{
	{"a photo of sks dog as an astronaut riding a horse on mars", "bad anatomy"},
	{"a photo of sks dog wearing a royal crown, oil painting", "bad anatomy"},
	{"a photo of sks dog in a superhero costume over a city skyline", "bad anatomy"},
	{"a watercolor painting of sks dog in a field of flowers", "bad anatomy"},
	{"a photo of sks dog as a pirate captain on a ship", "bad anatomy"},
	{"a renaissance portrait of sks dog", "bad anatomy"},
}

// trainingInput собирает параметры dreambooth-обучения.
// Все значения фиксированы, кроме instance_data — ZIP с фотографиями
// клиента.
func trainingInput(order *domain.Order) map[string]any {
	return map[string]any{
		"instance_prompt": "A photo of sks dog",
		"class_prompt":    "A photo of a dog",
		"instance_data":   order.TrainingImagesZipURL,
		"class_data":      classDataZipURL,

		"num_class_images":            800,
		"save_sample_prompt":          "A photo of sks dog",
		"save_sample_negative_prompt": "",
		"n_save_sample":               4,
		"save_guidance_scale":         7.5,
		"save_infer_steps":            50,
		"pad_tokens":                  false,
		"with_prior_preservation":     true,
		"prior_loss_weight":           0.5,
		"seed":                        1337,
		"center_crop":                 false,
		"train_text_encoder":          false,
		"train_batch_size":            2,
		"sample_batch_size":           4,
		"num_train_epochs":            1,
		"max_train_steps":             1000,
		"gradient_accumulation_steps": 2,
		"gradient_checkpointing":      true,
		"learning_rate":               2e-6,
		"scale_lr":                    false,
		"lr_scheduler":                "constant",
		"lr_warmup_steps":             0,
		"use_8bit_adam":               true,
		"adam_beta1":                  0.9,
		"adam_beta2":                  0.999,
		"adam_weight_decay":           0.01,
		"adam_epsilon":                1e-8,
		"max_grad_norm":               1,
	}
}

// SubmitTraining отправляет training job провайдеру и переводит заказ
// PENDING → TRAINING.
//
// При отказе провайдера заказ не меняется, ошибка возвращается
// вызывающему; автоматических повторов нет — повтор запускает
// оператор через CLI restart.
func (o *Orchestrator) SubmitTraining(ctx context.Context, order *domain.Order) error {
	next, err := Next(order.Status, EventTrainingSubmitted)
	if err != nil {
		return err
	}

	job, err := o.provider.CreateJob(ctx, &provider.CreateJobRequest{
		Version: modelVersion(),
		Input:   trainingInput(order),
	})
	if err != nil {
		return fmt.Errorf("submit training: %w", err)
	}

	order.Status = next
	order.MarkTraining(job.ID, domain.SubJobStatus(job.Status))

	if err := o.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("persist training submission: %w", err)
	}

	o.logger.Info("training submitted",
		"order_id", order.ID,
		"training_job_id", job.ID,
	)
	return nil
}

// SubmitInferenceBatch отправляет новый inference batch: N независимых
// sub-jobs, по одному на prompt, и переводит заказ в INFERING.
//
// Частичная отправка допустима: упавшие create пропускаются, заказ
// всё равно уходит в INFERING. Неполный batch агрегатор позже
// признает проваленным (правило пустого/неполного набора).
func (o *Orchestrator) SubmitInferenceBatch(ctx context.Context, order *domain.Order) error {
	next, err := Next(order.Status, EventInferenceSubmitted)
	if err != nil {
		if _, rerr := Next(order.Status, EventRestartInference); rerr != nil {
			return err
		}
		next = domain.OrderStatusInfering
	}

	batch := order.InferenceBatch + 1
	logger := telemetry.WithBatch(telemetry.WithOrderID(o.logger, order.ID.String()), batch)

	submitted := 0
	for _, p := range inferencePrompts {
		job, err := o.provider.CreateJob(ctx, &provider.CreateJobRequest{
			Version: modelVersion(),
			Input: map[string]any{
				"prompt":              p.prompt,
				"negative_prompt":     p.negativePrompt,
				"width":               inferenceWidth,
				"height":              inferenceHeight,
				"prompt_strength":     inferenceStrength,
				"num_outputs":         inferenceOutputs,
				"num_inference_steps": inferenceSteps,
				"guidance_scale":      inferenceGuidance,
			},
		})
		if err != nil {
			logger.Error("inference submit failed", "prompt", p.prompt, "error", err)
			continue
		}

		subJob := &domain.SubJob{
			ID:                uuid.New(),
			OrderID:           order.ID,
			Batch:             batch,
			ExternalID:        job.ID,
			Status:            domain.SubJobStatus(job.Status),
			Prompt:            p.prompt,
			NegativePrompt:    p.negativePrompt,
			Width:             inferenceWidth,
			Height:            inferenceHeight,
			NumOutputs:        inferenceOutputs,
			NumInferenceSteps: inferenceSteps,
			GuidanceScale:     inferenceGuidance,
			CreatedAt:         time.Now(),
		}
		if err := o.subJobs.Create(ctx, subJob); err != nil {
			logger.Error("persist sub-job failed", "external_id", job.ID, "error", err)
			continue
		}
		submitted++
	}

	order.Status = next
	order.MarkInfering(batch)

	if err := o.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("persist inference submission: %w", err)
	}

	logger.Info("inference batch submitted", "sub_jobs", submitted)
	return nil
}
