// Package blob recompresses scan images and stores them in a bucket,
// either Google Cloud Storage or a local directory.
package blob

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidObjectKey is returned when a key is invalid for GCS
var ErrInvalidObjectKey = errors.New("invalid object key")

// ObjectKey returns a fresh key <prefix>/<registeredID>-<uuid>.png.
// The random suffix keeps repeated uploads of one registration from colliding.
func ObjectKey(prefix, registeredID string) (string, error) {
	if strings.TrimSpace(registeredID) == "" {
		return "", fmt.Errorf("%w: registered id cannot be empty", ErrInvalidObjectKey)
	}
	if strings.ContainsAny(registeredID, `/\`) {
		return "", fmt.Errorf("%w: registered id %q contains a path separator", ErrInvalidObjectKey, registeredID)
	}

	name := fmt.Sprintf("%s-%s.png", registeredID, uuid.New().String())
	key := name
	if p := strings.Trim(prefix, "/"); p != "" {
		key = path.Join(p, name)
	}

	if err := ValidateObjectKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateObjectKey validates that a key is valid for GCS storage.
// GCS object names:
// - Must be UTF-8 encoded
// - Must be 1-1024 bytes when UTF-8 encoded
// - Cannot contain Carriage Return or Line Feed characters
// - Cannot start with .well-known/acme-challenge/
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidObjectKey)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key is not valid UTF-8", ErrInvalidObjectKey)
	}
	if len(key) > 1024 {
		return fmt.Errorf("%w: key exceeds 1024 bytes (%d bytes)", ErrInvalidObjectKey, len(key))
	}
	if strings.ContainsAny(key, "\r\n") {
		return fmt.Errorf("%w: key cannot contain carriage return or line feed", ErrInvalidObjectKey)
	}
	if strings.HasPrefix(key, ".well-known/acme-challenge/") {
		return fmt.Errorf("%w: key cannot start with .well-known/acme-challenge/", ErrInvalidObjectKey)
	}
	return nil
}
