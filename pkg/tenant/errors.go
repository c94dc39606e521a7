package tenant

import "fmt"

// FetchError indicates the upstream metadata or data service was
// unreachable. Callers fall back to last-known-good data where available.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed during %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
