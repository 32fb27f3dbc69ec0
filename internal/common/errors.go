package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")

	// ErrExtraction marks model output that could not be turned into a record.
	ErrExtraction = errors.New("extraction failed")
	// ErrClassification marks a classifier answer outside the known document types.
	ErrClassification = errors.New("classification ambiguous")
	// ErrInsufficientData marks a run without enough salary figures to estimate.
	ErrInsufficientData = errors.New("insufficient salary data")
	// ErrPersistence marks a result store read or write failure.
	ErrPersistence = errors.New("persistence failure")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ExtractionError carries the raw model output alongside the parse failure,
// so callers can surface it without treating it as a crash.
type ExtractionError struct {
	Raw   string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v: %v", ErrExtraction, e.Cause)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Cause}
}

// NewExtractionError wraps cause with the raw output that triggered it.
func NewExtractionError(raw string, cause error) error {
	return &ExtractionError{Raw: raw, Cause: cause}
}

// Code classifies err into a gRPC status code.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrInsufficientData):
		return codes.FailedPrecondition
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrPersistence):
		return codes.Unavailable
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

// HTTPStatus maps err onto the HTTP status the API answers with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
