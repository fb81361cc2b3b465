package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes
const (
	CodeAppError      = "APP_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeCache         = "CACHE_ERROR"
	CodeService       = "SERVICE_ERROR"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type NotFoundError struct {
	*AppError
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		AppError: &AppError{
			Message:    fmt.Sprintf("%s not found", resource),
			Code:       CodeNotFound,
			StatusCode: http.StatusNotFound,
			Context: map[string]any{
				"resource": resource,
				"id":       id,
			},
		},
		Resource: resource,
		ID:       id,
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// QuotaExceededError is returned when an upstream API budget is exhausted.
type QuotaExceededError struct {
	*AppError
	Used      int
	Limit     int
	Requested int
	ResetTime time.Time
}

func NewQuotaExceededError(service string, used, limit, requested int, reset time.Time) *QuotaExceededError {
	return &QuotaExceededError{
		AppError: &AppError{
			Message:    fmt.Sprintf("%s quota exceeded (%d/%d used, %d requested)", service, used, limit, requested),
			Code:       CodeQuotaExceeded,
			StatusCode: http.StatusServiceUnavailable,
			Context: map[string]any{
				"service":    service,
				"reset_time": reset,
			},
		},
		Used:      used,
		Limit:     limit,
		Requested: requested,
		ResetTime: reset,
	}
}

// StatusCode extracts the HTTP status carried by err, defaulting to 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var nf *NotFoundError
	if stderrors.As(err, &nf) {
		return nf.StatusCode
	}
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve.StatusCode
	}
	var qe *QuotaExceededError
	if stderrors.As(err, &qe) {
		return qe.StatusCode
	}
	var ae *AppError
	if stderrors.As(err, &ae) && ae.StatusCode != 0 {
		return ae.StatusCode
	}
	return http.StatusInternalServerError
}

// Code extracts the error code carried by err.
func Code(err error) string {
	var nf *NotFoundError
	if stderrors.As(err, &nf) {
		return nf.Code
	}
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve.Code
	}
	var qe *QuotaExceededError
	if stderrors.As(err, &qe) {
		return qe.Code
	}
	var ce *CacheError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Code
	}
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return CodeAppError
}
