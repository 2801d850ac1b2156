package media

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ParseTags decodes the caller-supplied tag text. Nil or blank text means no tags.
func ParseTags(ctx context.Context, raw *string) ([]string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(*raw), &decoded); err != nil {
		return nil, errInvalidTags(ctx, err)
	}
	items, ok := decoded.([]any)
	if !ok {
		return nil, errInvalidTags(ctx, errors.New("tags must be an array"))
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		tag, ok := item.(string)
		if !ok {
			return nil, errInvalidTags(ctx, errors.New("every tag must be a string"))
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
