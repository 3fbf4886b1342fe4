package gcsuploader

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/statement-ingest/internal/gcs"
)

// Re-export interface from shared package so callers need only one import.
type StorageService = gcs.StorageService

var _ StorageService = (*GCSStorageService)(nil)

// DefaultFetchTimeout bounds a single object download when no timeout is set.
const DefaultFetchTimeout = 2 * time.Minute

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage. One client is shared by every
// call; Close releases it.
type GCSStorageService struct {
	client       *storage.Client
	fetchTimeout time.Duration
}

// NewGCSStorageService creates a storage client using Application Default
// Credentials. fetchTimeout <= 0 means DefaultFetchTimeout.
func NewGCSStorageService(ctx context.Context, fetchTimeout time.Duration) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &GCSStorageService{client: client, fetchTimeout: fetchTimeout}, nil
}

// Close releases the underlying storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// ListObjects delegates to ListObjects with the shared client.
func (s *GCSStorageService) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	return ListObjects(ctx, s.client, bucketName, prefix)
}

// FetchObject downloads one object, failing once the fetch timeout elapses.
func (s *GCSStorageService) FetchObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	return DownloadObject(ctx, s.client, bucketName, objectName)
}

// UploadFile delegates to UploadFile with the shared client.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, s.client, bucketName, objectName, filePath)
}
