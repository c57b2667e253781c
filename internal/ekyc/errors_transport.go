package ekyc

import "fmt"

// TransportError covers failures where the provider's verdict is unknown:
// network errors, timeouts, and unparseable responses. These are always
// safe to retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
