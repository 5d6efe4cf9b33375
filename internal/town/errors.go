package town

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/covey.town/internal/platform/errors"
)

// Fields named by ValidationError.
const (
	FieldUsername = "username"
	FieldTownID   = "townID"
	FieldName     = "name"
	FieldPassword = "password"
)

// ValidationError reports a missing or malformed user input.
type ValidationError struct {
	Field string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Code returns the platform error code for the failed field.
func (e *ValidationError) Code() apperrors.Code {
	switch e.Field {
	case FieldUsername:
		return apperrors.CodeUsernameEmpty
	case FieldTownID:
		return apperrors.CodeTownIDEmpty
	case FieldName:
		return apperrors.CodeTownNameEmpty
	case FieldPassword:
		return apperrors.CodeTownPasswordEmpty
	default:
		return apperrors.CodeInvalidRequest
	}
}

// Is matches another ValidationError for the same field.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Field == e.Field
}

// ServiceError reports that a remote operation was rejected or could not be
// reached. Message is the human-readable description from the service.
type ServiceError struct {
	Op      string
	Code    apperrors.Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches another ServiceError with the same code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Code == e.Code
}

// NewServiceError converts any error from a remote call into a ServiceError.
// gRPC statuses keep their domain code; an existing ServiceError is returned
// as is.
func NewServiceError(op string, err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	domain := apperrors.FromGRPCStatus(err)
	return &ServiceError{
		Op:      op,
		Code:    domain.Code,
		Message: domain.Message,
		Cause:   err,
	}
}

// ProtocolViolation reports a collaborator that returned success without
// meeting its contract. It is not recoverable by retrying.
type ProtocolViolation struct {
	Op     string
	Code   apperrors.Code
	Detail string
}

// Error implements the error interface.
func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation in %s: %s", e.Op, e.Detail)
}

// Is matches any ProtocolViolation with the same code.
func (e *ProtocolViolation) Is(target error) bool {
	t, ok := target.(*ProtocolViolation)
	return ok && t.Code == e.Code
}
