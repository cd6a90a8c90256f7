package trakt

import (
	"errors"
	"fmt"
)

// ProviderError is returned for failures that should reach the caller: network
// errors and exhausted 5xx retries. Client errors (4xx, malformed bodies) are
// absorbed inside the client and surface as empty results instead.
type ProviderError struct {
	Op        string
	Status    int
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("trakt %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("trakt %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
