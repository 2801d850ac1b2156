package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/services/media-api/internal/utils/platformerrors"
)

func TestClassify(t *testing.T) {
	v := NewValidator(10, 100)
	ctx := context.Background()

	cases := []struct {
		name        string
		contentType string
		fileName    string
		want        MediaKind
	}{
		{"jpeg", "image/jpeg", "a.jpg", MediaKindImage},
		{"parameters and case", "IMAGE/PNG; charset=binary", "a", MediaKindImage},
		{"mp4", "video/mp4", "clip.mp4", MediaKindVideo},
		{"missing type uses extension", "", "holiday.MOV", MediaKindVideo},
		{"octet-stream uses extension", "application/octet-stream", "scan.webp", MediaKindImage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := v.Classify(ctx, tc.contentType, tc.fileName)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestClassifyRejectsOtherTypes(t *testing.T) {
	v := NewValidator(10, 100)
	ctx := context.Background()

	for _, contentType := range []string{"application/pdf", "text/plain", "audio/mpeg"} {
		_, err := v.Classify(ctx, contentType, "file.jpg")
		require.Error(t, err, contentType)
		assert.True(t, platformerrors.HasCode(err, platformerrors.CodeInvalidMediaType))
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	}

	_, err := v.Classify(ctx, "", "notes.txt")
	assert.True(t, platformerrors.HasCode(err, platformerrors.CodeInvalidMediaType))
}

func TestCheckSize(t *testing.T) {
	v := NewValidator(10, 100)
	ctx := context.Background()

	size, err := v.CheckSize(ctx, MediaKindImage, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	_, err = v.CheckSize(ctx, MediaKindImage, 11)
	assert.True(t, platformerrors.HasCode(err, platformerrors.CodeFileTooLarge))

	size, err = v.CheckSize(ctx, MediaKindVideo, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)

	_, err = v.CheckSize(ctx, MediaKindVideo, 101)
	assert.True(t, platformerrors.HasCode(err, platformerrors.CodeFileTooLarge))

	size, err = v.CheckSize(ctx, MediaKindImage, -1)
	require.NoError(t, err)
	assert.Zero(t, size)
}
