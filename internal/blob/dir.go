package blob

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
)

// DirUploader stores objects under <root>/<bucket>/<objectKey> on the local filesystem
type DirUploader struct {
	root string
}

// NewDirUploader creates a DirUploader rooted at root
func NewDirUploader(root string) *DirUploader {
	return &DirUploader{root: root}
}

// Path returns where an object is stored
func (u *DirUploader) Path(bucket, objectKey string) string {
	return filepath.Join(u.root, bucket, filepath.FromSlash(objectKey))
}

// Upload recompresses localPath into the object's path. The object appears atomically.
func (u *DirUploader) Upload(ctx context.Context, localPath, objectKey, bucket string, quality png.CompressionLevel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateObjectKey(objectKey); err != nil {
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}

	dst := u.Path(bucket, objectKey)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := Recompress(localPath, tmp, quality); err != nil {
		tmp.Close()
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &UploadError{LocalPath: localPath, ObjectKey: objectKey, Err: err}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return &UploadError{
			LocalPath: localPath,
			ObjectKey: objectKey,
			Err:       fmt.Errorf("failed to move object into place: %w", err),
		}
	}
	return nil
}
