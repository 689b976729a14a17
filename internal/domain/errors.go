package domain

import "fmt"

// Error types for consistent error handling across the storefront assistant.

// ErrExternalService indicates a failure in an external service call.
// StatusCode is the upstream HTTP status when one was received, 0 otherwise.
type ErrExternalService struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ErrExternalService) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("external service error [%s] status=%d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrMissingCredential indicates a required secret is not configured.
type ErrMissingCredential struct {
	Name string
}

func (e *ErrMissingCredential) Error() string {
	return fmt.Sprintf("missing credential: %s", e.Name)
}
