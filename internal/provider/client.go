package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Default configuration values.
const (
	defaultBaseURL = "https://api.replicate.com/v1"
	defaultTimeout = 30 * time.Second
)

// Ошибки клиента.
var (
	// ErrJobNotFound — провайдер не знает такой job id.
	ErrJobNotFound = errors.New("provider job not found")

	// ErrRejected — провайдер отклонил создание job.
	// Заказ при этом не меняется; повтор — ответственность вызывающего.
	ErrRejected = errors.New("provider rejected job submission")
)

// Status — статус job в словаре провайдера.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal возвращает true, если статус финальный.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// CreateJobRequest — запрос на создание job.
//
// Version — идентификатор версии модели у провайдера.
// Input — параметры job; оркестратор передаёт их как есть.
type CreateJobRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// Job — ответ провайдера на create/get.
type Job struct {
	ID     string     `json:"id"`
	Status Status     `json:"status"`
	Output OutputURLs `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// OutputURLs — список URL результатов.
//
// Провайдер отдаёт output то строкой (training возвращает один
// артефакт), то массивом строк (inference). Нормализуем к списку.
type OutputURLs []string

// UnmarshalJSON принимает строку, массив строк или null.
func (o *OutputURLs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*o = OutputURLs{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("unmarshal output: %w", err)
	}
	*o = many
	return nil
}

// Client — HTTP-клиент провайдера.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес API (default: https://api.replicate.com/v1).
	BaseURL string

	// Token — API token для заголовка Authorization.
	Token string

	// HTTPClient — опциональный http.Client (для тестов).
	HTTPClient *http.Client
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		httpc:   httpc,
	}
}

// NewFromEnv создаёт Client из переменных окружения
// PROVIDER_API_URL и PROVIDER_API_TOKEN.
func NewFromEnv() *Client {
	return New(Config{
		BaseURL: os.Getenv("PROVIDER_API_URL"),
		Token:   os.Getenv("PROVIDER_API_TOKEN"),
	})
}

// CreateJob регистрирует новый job у провайдера.
func (c *Client) CreateJob(ctx context.Context, req *CreateJobRequest) (*Job, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, true)
}

// GetJob возвращает текущее состояние job по внешнему id.
// Идемпотентен: может вызываться сколько угодно раз.
func (c *Client) GetJob(ctx context.Context, externalID string) (*Job, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/predictions/"+externalID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq, false)
}

// do выполняет запрос и разбирает ответ.
func (c *Client) do(req *http.Request, isCreate bool) (*Job, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// На create любой отказ — ErrRejected, включая 404
	// (несуществующая версия модели). ErrJobNotFound — только
	// про существующие jobs, то есть get.
	switch {
	case isCreate && resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s",
			ErrRejected, resp.StatusCode, truncate(string(respBody), 200))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, req.URL.Path)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("provider HTTP %d: %s",
			resp.StatusCode, truncate(string(respBody), 200))
	}

	var job Job
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// setHeaders устанавливает авторизацию.
func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
