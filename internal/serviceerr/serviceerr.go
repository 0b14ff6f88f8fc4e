// Package serviceerr carries the operation-scoped error codes returned by the domain services.
package serviceerr

import (
	"errors"
	"fmt"
)

// ServiceError pairs a stable "<operation>.<reason>" code with the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

// New builds a ServiceError for the operation and reason.
func New(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// Code extracts the service error code from err, or returns an empty string.
func Code(err error) string {
	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		return serviceError.Code()
	}
	return ""
}
