package justwatch

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by errors for upstream 404 responses.
var ErrNotFound = errors.New("justwatch: not found")

// UpstreamError describes a failed call to the content API. Status is zero
// when no response was received.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("justwatch %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("justwatch %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsNotFound reports whether err came from an upstream 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
