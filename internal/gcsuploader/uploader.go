package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// UploadFile uploads a local file to a GCS bucket under the given object name.
func UploadFile(ctx context.Context, client *storage.Client, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType(objectName)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}

	return nil
}

// ListObjects pages through every object under prefix and returns the keys in
// listing order. Directory placeholders (keys ending in "/") are left out.
func ListObjects(ctx context.Context, client *storage.Client, bucketName, prefix string) ([]string, error) {
	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	it.PageInfo().MaxSize = 1000

	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListObjects: listing gs://%s/%s: %w", bucketName, prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		keys = append(keys, attrs.Name)
	}

	return keys, nil
}

// DownloadObject reads the full content of one object.
func DownloadObject(ctx context.Context, client *storage.Client, bucketName, objectName string) ([]byte, error) {
	rc, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("DownloadObject: reading object %s/%s: %w", bucketName, objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("DownloadObject: reading bytes: %w", err)
	}

	return data, nil
}

// ObjectURI formats a bucket and key as a gs:// URI.
func ObjectURI(bucketName, objectName string) string {
	return "gs://" + bucketName + "/" + objectName
}

// ParseGCSURI splits "gs://bucket/path/to/file.pdf" into bucket and object.
func ParseGCSURI(uri string) (bucketName, objectName string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("ParseGCSURI: invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ParseGCSURI: invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}

// ObjectName joins a prefix and the base name of a local file into a key.
// e.g., ("statements/2024", "/tmp/april.pdf") → "statements/2024/april.pdf"
func ObjectName(prefix, filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	if prefix == "" {
		return base
	}
	return strings.TrimSuffix(prefix, "/") + "/" + base
}

func contentType(objectName string) string {
	switch strings.ToLower(path.Ext(objectName)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
