package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// WithRequestID stores the request ID so errors raised downstream can carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request ID set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// ErrorType represents the category of error and drives the HTTP status.
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden     ErrorType = "FORBIDDEN"
	ErrorTypeInternal      ErrorType = "INTERNAL"
	ErrorTypeExternal      ErrorType = "EXTERNAL"
	ErrorTypeDatabaseError ErrorType = "DATABASE_ERROR"
)

// Code is the stable, client-visible error code.
type Code string

const (
	CodeInvalidMediaType      Code = "INVALID_MEDIA_TYPE"
	CodeFileTooLarge          Code = "FILE_TOO_LARGE"
	CodeInvalidTagsFormat     Code = "INVALID_TAGS_FORMAT"
	CodeInvalidQuery          Code = "INVALID_QUERY"
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeNotFound              Code = "NOT_FOUND"
	CodeForbidden             Code = "FORBIDDEN"
	CodeStorageUnavailable    Code = "STORAGE_UNAVAILABLE"
	CodeRepositoryUnavailable Code = "REPOSITORY_UNAVAILABLE"
	CodeInternal              Code = "INTERNAL"
)

// Layer represents the application layer where the error occurred
type Layer string

const (
	LayerRepository     Layer = "repository"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerRoute          Layer = "route"
	LayerInfrastructure Layer = "infrastructure"
)

// PlatformError represents an error with context and metadata
type PlatformError struct {
	UUID      string
	Type      ErrorType
	Code      Code
	Message   string
	Err       error
	Context   map[string]any
	RequestID string
	Layer     Layer
	Timestamp time.Time
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s][%s] %s: %v", e.Layer, e.Code, e.UUID, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s][%s] %s", e.Layer, e.Code, e.UUID, e.Message)
}

// Unwrap returns the underlying error
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the message may be shown to the caller verbatim.
func (e *PlatformError) IsClientError() bool {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeForbidden, ErrorTypeUnauthorized:
		return true
	default:
		return false
	}
}

// NewError creates a new PlatformError with the specified parameters
func NewError(ctx context.Context, layer Layer, errorType ErrorType, code Code, message string, err error, uuid string) *PlatformError {
	return NewErrorWithContext(ctx, layer, errorType, code, message, err, uuid, nil)
}

// NewErrorWithContext creates a new PlatformError with additional context fields
func NewErrorWithContext(ctx context.Context, layer Layer, errorType ErrorType, code Code, message string, err error, uuid string, contextFields map[string]any) *PlatformError {
	if uuid == "" {
		uuid = "auto-generated-uuid"
	}
	if code == "" {
		code = defaultCode(errorType)
	}

	errorContext := make(map[string]any, len(contextFields))
	for k, v := range contextFields {
		errorContext[k] = v
	}

	return &PlatformError{
		UUID:      uuid,
		Type:      errorType,
		Code:      code,
		Message:   message,
		Err:       err,
		RequestID: RequestIDFromContext(ctx),
		Layer:     layer,
		Timestamp: time.Now().UTC(),
		Context:   errorContext,
	}
}

// AsError wraps an error with layer context, keeping the type and code of a wrapped PlatformError.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	if err == nil {
		return nil
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return NewError(ctx, layer, platformErr.Type, platformErr.Code, fmt.Sprintf("%s: %s", message, platformErr.Message), platformErr, platformErr.UUID)
	}

	return NewError(ctx, layer, ErrorTypeInternal, CodeInternal, message, err, "")
}

func defaultCode(errorType ErrorType) Code {
	switch errorType {
	case ErrorTypeNotFound:
		return CodeNotFound
	case ErrorTypeForbidden:
		return CodeForbidden
	case ErrorTypeUnauthorized:
		return CodeUnauthorized
	case ErrorTypeValidation:
		return CodeInvalidRequest
	case ErrorTypeDatabaseError:
		return CodeRepositoryUnavailable
	case ErrorTypeExternal:
		return CodeStorageUnavailable
	default:
		return CodeInternal
	}
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// IsErrorType checks if an error is a PlatformError with the specified type
func IsErrorType(err error, errorType ErrorType) bool {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Type == errorType
	}
	return false
}

// HasCode checks if an error is a PlatformError with the specified code
func HasCode(err error, code Code) bool {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Code == code
	}
	return false
}

// LogError logs a platform error with proper structure
func LogError(logger zerolog.Logger, err *PlatformError) {
	if err == nil {
		return
	}

	event := logger.Error().
		Str("error_uuid", err.UUID).
		Str("error_type", string(err.Type)).
		Str("error_code", string(err.Code)).
		Str("layer", string(err.Layer)).
		Time("timestamp_utc", err.Timestamp)

	if err.RequestID != "" {
		event = event.Str("request_id", err.RequestID)
	}

	for k, v := range err.Context {
		event = event.Interface(k, v)
	}

	if err.Err != nil {
		event = event.Err(err.Err)
	}

	event.Msg(err.Message)
}
