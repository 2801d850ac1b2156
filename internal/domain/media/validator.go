package media

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
	".tif": {}, ".tiff": {}, ".heic": {}, ".heif": {}, ".svg": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".avi": {}, ".webm": {}, ".mkv": {},
	".mpeg": {}, ".mpg": {}, ".3gp": {}, ".wmv": {},
}

// Validator classifies uploads and enforces the per-kind size ceilings.
// It only looks at declared metadata, never at the bytes.
type Validator struct {
	maxImageBytes int64
	maxVideoBytes int64
}

func NewValidator(maxImageBytes, maxVideoBytes int64) *Validator {
	return &Validator{maxImageBytes: maxImageBytes, maxVideoBytes: maxVideoBytes}
}

// Classify derives the media kind from the declared content type, falling back to
// the file extension when the type is missing or generic.
func (v *Validator) Classify(ctx context.Context, contentType, fileName string) (MediaKind, error) {
	declared := normalizeContentType(contentType)
	switch {
	case strings.HasPrefix(declared, "image/"):
		return MediaKindImage, nil
	case strings.HasPrefix(declared, "video/"):
		return MediaKindVideo, nil
	case declared == "" || declared == "application/octet-stream":
		ext := strings.ToLower(filepath.Ext(fileName))
		if _, ok := imageExtensions[ext]; ok {
			return MediaKindImage, nil
		}
		if _, ok := videoExtensions[ext]; ok {
			return MediaKindVideo, nil
		}
	}
	return "", errInvalidMediaType(ctx, contentType, fileName)
}

// CheckSize returns the accepted size or FileTooLarge.
func (v *Validator) CheckSize(ctx context.Context, kind MediaKind, size int64) (int64, error) {
	if size < 0 {
		size = 0
	}
	limit := v.limitFor(kind)
	if limit > 0 && size > limit {
		return 0, errFileTooLarge(ctx, kind, size, limit)
	}
	return size, nil
}

func (v *Validator) limitFor(kind MediaKind) int64 {
	if kind == MediaKindVideo {
		return v.maxVideoBytes
	}
	return v.maxImageBytes
}

func normalizeContentType(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return strings.ToLower(clean)
	}
	return strings.ToLower(mediaType)
}
