package extract

import "fmt"

// DiscoveryError represents an error during file discovery
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// UnmatchedPathError is returned when a scan path does not fit the template.
// It fails the whole batch.
type UnmatchedPathError struct {
	Path     string
	Template string
}

func (e *UnmatchedPathError) Error() string {
	return fmt.Sprintf("path %s does not match template %s", e.Path, e.Template)
}

// UnresolvedAccessionError is returned when a captured QR code is absent from the accession source.
// It fails the whole batch.
type UnresolvedAccessionError struct {
	Path   string
	QRCode string
	Source string
}

func (e *UnresolvedAccessionError) Error() string {
	return fmt.Sprintf("plant QR code %q (from %s) not found in accession source %s", e.QRCode, e.Path, e.Source)
}

// DecodeError is returned when a captured value cannot be decoded for its field
type DecodeError struct {
	Path  string
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s=%q from %s: %v", e.Field, e.Value, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
