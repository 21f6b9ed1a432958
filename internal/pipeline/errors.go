package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when paths and records are not index-aligned
	ErrLengthMismatch = errors.New("paths and records differ in length")

	// ErrMissingFile is returned for an item whose local image does not exist
	ErrMissingFile = errors.New("local image not found")

	// ErrNoRegisteredID is returned when the registrar succeeds without assigning an identifier
	ErrNoRegisteredID = errors.New("registration returned no identifier")
)

// ItemError is the terminal error of one upload item
type ItemError struct {
	Index int
	Path  string
	Stage ItemState // the last state the item reached before failing
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s) failed after %s: %v", e.Index, e.Path, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
