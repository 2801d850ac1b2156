package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/utils/platformerrors"
)

const genericErrorMessage = "internal server error"

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	ErrorID   string `json:"error_id,omitempty"` // UUID from PlatformError
	RequestID string `json:"request_id,omitempty"`
}

// HandleError maps err to a status and body. Backend failures are logged and
// answered with a generic message.
func HandleError(reqCtx *gin.Context, log zerolog.Logger, err error, message string) {
	var platformErr *platformerrors.PlatformError
	if !errors.As(err, &platformErr) {
		platformErr = platformerrors.NewError(reqCtx.Request.Context(),
			platformerrors.LayerHandler,
			platformerrors.ErrorTypeInternal,
			platformerrors.CodeInternal,
			message,
			err,
			"f3a8c1d6-7e29-4b05-9d41-2c6e8a0b5f73",
		)
	}
	_ = reqCtx.Error(err)

	statusCode := platformerrors.ErrorTypeToHTTPStatus(platformErr.Type)
	errResp := ErrorResponse{
		Code:      string(platformErr.Code),
		ErrorID:   platformErr.UUID,
		RequestID: platformErr.RequestID,
	}
	if platformErr.IsClientError() {
		errResp.Error = rootMessage(platformErr)
	} else {
		platformerrors.LogError(log, platformErr)
		errResp.Error = genericErrorMessage
	}
	if errResp.RequestID == "" {
		errResp.RequestID = platformerrors.RequestIDFromContext(reqCtx.Request.Context())
	}

	reqCtx.AbortWithStatusJSON(statusCode, errResp)
}

// HandleNewError creates a typed error at the route layer and handles it.
func HandleNewError(reqCtx *gin.Context, log zerolog.Logger, errorType platformerrors.ErrorType, code platformerrors.Code, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, code, message, nil, uuid)
	HandleError(reqCtx, log, err, message)
}

// rootMessage returns the message of the innermost PlatformError, which is the
// one written for the caller.
func rootMessage(err *platformerrors.PlatformError) string {
	message := err.Message
	var inner *platformerrors.PlatformError
	for cause := err.Err; errors.As(cause, &inner); cause = inner.Err {
		message = inner.Message
	}
	return message
}
