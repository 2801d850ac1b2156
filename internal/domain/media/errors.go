package media

import (
	"context"
	"fmt"

	"mediavault/services/media-api/internal/utils/platformerrors"
)

func errInvalidMediaType(ctx context.Context, contentType, fileName string) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		platformerrors.CodeInvalidMediaType,
		"invalid file type: only images and videos are allowed",
		nil,
		"3b0f6c1e-8d2a-4f57-9c41-6a7e2d5b8f10",
		map[string]any{"content_type": contentType, "file_name": fileName},
	)
}

func errFileTooLarge(ctx context.Context, kind MediaKind, size, limit int64) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		platformerrors.CodeFileTooLarge,
		fmt.Sprintf("file too large: %s uploads are limited to %d bytes", kind, limit),
		nil,
		"c47d2a90-1e6b-4b38-a5f2-0d9e8c7b6a51",
		map[string]any{"size_bytes": size, "limit_bytes": limit},
	)
}

func errInvalidTags(ctx context.Context, cause error) error {
	return platformerrors.NewError(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		platformerrors.CodeInvalidTagsFormat,
		"invalid tags format: must be a JSON array of strings",
		cause,
		"5e81b3f4-27c9-4d06-8a1b-f3c2e9d40a77",
	)
}

func errInvalidQuery(ctx context.Context) error {
	return platformerrors.NewError(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		platformerrors.CodeInvalidQuery,
		"search query must contain at least one character",
		nil,
		"a9c5e7d2-4f18-46b3-b0e6-72d1f8c3a945",
	)
}

func errNotFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeNotFound,
		platformerrors.CodeNotFound,
		"media not found",
		nil,
		"0d6e4b2a-93f1-4c87-a2d5-b8e1c6f70394",
		map[string]any{"media_id": id},
	)
}

func errForbidden(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeForbidden,
		platformerrors.CodeForbidden,
		"you don't have permission to access this media",
		nil,
		"e2f7a1c8-5b34-4d9e-8c60-1a4b7d3e9f25",
		map[string]any{"media_id": id},
	)
}

func errStorage(ctx context.Context, message string, cause error, uuid string) error {
	return platformerrors.NewError(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeExternal,
		platformerrors.CodeStorageUnavailable,
		message,
		cause,
		uuid,
	)
}

func errUnreadablePayload(ctx context.Context, cause error) error {
	return platformerrors.NewError(ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		platformerrors.CodeInvalidRequest,
		"failed to read uploaded file",
		cause,
		"b4d9e2a7-6f13-4c80-9a5e-1d7c3f08e2b6",
	)
}
