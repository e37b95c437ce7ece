package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store — хранилище артефактов поверх AWS S3.
type S3Store struct {
	client *s3.Client
	bucket string
	httpc  *http.Client
}

// NewS3Store создаёт S3Store, используя стандартную цепочку
// AWS credentials. Bucket берётся из переменной окружения S3_BUCKET.
func NewS3Store(ctx context.Context) (*S3Store, error) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		httpc:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Upload сохраняет содержимое body под указанным ключом
// и возвращает публичный URL объекта.
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}

// CopyFromURL скачивает объект по srcURL и сохраняет его под key.
// Используется для переноса артефактов из выдачи провайдера:
// его URL временные, наш bucket — постоянное хранилище.
func (s *S3Store) CopyFromURL(ctx context.Context, srcURL, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", srcURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", srcURL, resp.StatusCode)
	}

	return s.Upload(ctx, key, resp.Body)
}
