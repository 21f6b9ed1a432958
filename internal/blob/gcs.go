package blob

import (
	"context"
	"fmt"
	"image/png"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// UploadError represents an error during upload
type UploadError struct {
	LocalPath string
	ObjectKey string
	Err       error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload error for %s to %s: %v", e.LocalPath, e.ObjectKey, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// GCSUploader streams recompressed scans to Google Cloud Storage
type GCSUploader struct {
	client *storage.Client
}

// NewGCSUploader creates a new GCSUploader
func NewGCSUploader(client *storage.Client) *GCSUploader {
	return &GCSUploader{client: client}
}

// Upload recompresses localPath and writes it to bucket/objectKey.
// A failed encode aborts the write so no partial object is created.
func (u *GCSUploader) Upload(ctx context.Context, localPath, objectKey, bucket string, quality png.CompressionLevel) error {
	if err := ValidateObjectKey(objectKey); err != nil {
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := u.client.Bucket(bucket).Object(objectKey).NewWriter(ctx)
	writer.ContentType = ContentType
	writer.Metadata = map[string]string{"source": filepath.Base(localPath)}

	if err := Recompress(localPath, writer, quality); err != nil {
		cancel()
		_ = writer.Close()
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}

	if err := writer.Close(); err != nil {
		return &UploadError{
			LocalPath: localPath,
			ObjectKey: objectKey,
			Err:       fmt.Errorf("failed to finalize GCS upload: %w", err),
		}
	}
	return nil
}
