package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// ListObjects returns every object key in bucket under prefix.
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)

	// FetchObject downloads the bytes of one object.
	FetchObject(ctx context.Context, bucketName, objectName string) ([]byte, error)

	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error
}
