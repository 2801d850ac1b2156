package responses

import (
	"time"

	"mediavault/services/media-api/internal/domain/media"
)

// MediaResponse is the public shape of a media record.
type MediaResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	FileName         string    `json:"fileName"`
	OriginalFileName string    `json:"originalFileName"`
	MediaType        string    `json:"mediaType"`
	FileSize         int64     `json:"fileSize"`
	MimeType         string    `json:"mimeType"`
	BlobURL          string    `json:"blobUrl"`
	ThumbnailURL     *string   `json:"thumbnailUrl"`
	Description      *string   `json:"description"`
	Tags             []string  `json:"tags"`
	UploadedAt       time.Time `json:"uploadedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// MediaListResponse is one page of media records.
type MediaListResponse struct {
	Items    []MediaResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// MediaURLResponse carries a freshly issued blob URL.
type MediaURLResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// BuildMediaResponse creates response from domain record
func BuildMediaResponse(rec *media.MediaRecord) MediaResponse {
	return MediaResponse{
		ID:               rec.ID,
		UserID:           rec.OwnerID,
		FileName:         rec.StorageKey,
		OriginalFileName: rec.OriginalName,
		MediaType:        string(rec.MediaKind),
		FileSize:         rec.SizeBytes,
		MimeType:         rec.MimeType,
		BlobURL:          rec.BlobRef,
		ThumbnailURL:     rec.ThumbnailRef,
		Description:      rec.Description,
		Tags:             rec.Tags,
		UploadedAt:       rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

// BuildMediaListResponse creates a list response from a domain page
func BuildMediaListResponse(page *media.Page) MediaListResponse {
	items := make([]MediaResponse, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, BuildMediaResponse(rec))
	}
	return MediaListResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}
