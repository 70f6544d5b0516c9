package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage holds receipt images and other expense attachments.
type Storage interface {
	Upload(ctx context.Context, bucket string, filename string, file io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, bucket string, filename string) error
	GetURL(ctx context.Context, bucket string, filename string) (string, error)
}

// ObjectStorage talks to a Supabase-compatible storage API.
type ObjectStorage struct {
	baseURL   string
	publicURL string
	apiKey    string
	client    *http.Client
}

func NewObjectStorage(baseURL, publicURL, apiKey string) *ObjectStorage {
	return &ObjectStorage{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ObjectStorage) objectURL(bucket, filename string) string {
	if strings.HasSuffix(s.baseURL, "/storage/v1") {
		return fmt.Sprintf("%s/object/%s/%s", s.baseURL, bucket, filename)
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, filename)
}

func (s *ObjectStorage) Upload(ctx context.Context, bucket string, filename string, file io.Reader, contentType string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("%s_%d", uuid.New().String(), time.Now().Unix())
	}

	url := s.objectURL(bucket, filename)
	zap.L().Debug("Uploading object",
		zap.String("bucket", bucket),
		zap.String("filename", filename),
		zap.String("content_type", contentType))

	req, err := createUploadRequest(ctx, url, s.apiKey, file, contentType)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().Error("Upload request failed", zap.String("bucket", bucket), zap.Error(err))
		return "", fmt.Errorf("executing upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		zap.L().Error("Upload rejected",
			zap.String("bucket", bucket),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	return s.GetURL(ctx, bucket, filename)
}

func (s *ObjectStorage) Delete(ctx context.Context, bucket string, filename string) error {
	req, err := createDeleteRequest(ctx, s.objectURL(bucket, filename), s.apiKey)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete failed with status %d", resp.StatusCode)
	}
	return nil
}

func (s *ObjectStorage) GetURL(_ context.Context, bucket string, filename string) (string, error) {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.publicURL, bucket, filename), nil
}
