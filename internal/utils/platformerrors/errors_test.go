package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorCarriesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	err := NewError(ctx, LayerDomain, ErrorTypeValidation, CodeInvalidQuery, "query is required", nil, "u-1")

	assert.Equal(t, "req-42", err.RequestID)
	assert.Equal(t, CodeInvalidQuery, err.Code)
	assert.True(t, err.IsClientError())
	assert.Contains(t, err.Error(), "query is required")
}

func TestNewErrorDefaultsCodeFromType(t *testing.T) {
	err := NewError(context.Background(), LayerRepository, ErrorTypeDatabaseError, "", "boom", errors.New("conn reset"), "")

	assert.Equal(t, CodeRepositoryUnavailable, err.Code)
	assert.Equal(t, "auto-generated-uuid", err.UUID)
	assert.False(t, err.IsClientError())
}

func TestAsErrorKeepsTypeAndCode(t *testing.T) {
	inner := NewError(context.Background(), LayerRepository, ErrorTypeNotFound, CodeNotFound, "media record not found", nil, "u-2")
	wrapped := AsError(context.Background(), LayerDomain, fmt.Errorf("lookup: %w", inner), "get media")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, CodeNotFound, wrapped.Code)
	assert.True(t, IsErrorType(wrapped, ErrorTypeNotFound))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.Nil(t, AsError(context.Background(), LayerDomain, nil, "noop"))
}

func TestAsErrorPlainErrorIsInternal(t *testing.T) {
	wrapped := AsError(context.Background(), LayerDomain, errors.New("disk full"), "store blob")

	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.Equal(t, CodeInternal, wrapped.Code)
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	cases := map[ErrorType]int{
		ErrorTypeNotFound:      http.StatusNotFound,
		ErrorTypeValidation:    http.StatusBadRequest,
		ErrorTypeUnauthorized:  http.StatusUnauthorized,
		ErrorTypeForbidden:     http.StatusForbidden,
		ErrorTypeDatabaseError: http.StatusInternalServerError,
		ErrorTypeExternal:      http.StatusInternalServerError,
		ErrorTypeInternal:      http.StatusInternalServerError,
	}
	for errorType, want := range cases {
		assert.Equal(t, want, ErrorTypeToHTTPStatus(errorType), errorType)
	}
}
