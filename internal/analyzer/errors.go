package analyzer

import (
	"errors"
	"fmt"
)

// ErrInsufficientSamples matches any InsufficientSamplesError via errors.Is.
var ErrInsufficientSamples = errors.New("insufficient samples for clustering")

// InsufficientSamplesError is returned when fewer non-neutral pixels than
// clusters remain after filtering.
type InsufficientSamplesError struct {
	Samples  int
	Clusters int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: %d non-neutral pixels for %d clusters", e.Samples, e.Clusters)
}

// Is reports ErrInsufficientSamples as equivalent.
func (e *InsufficientSamplesError) Is(target error) bool {
	return target == ErrInsufficientSamples
}
