package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MediaRecord represents the persisted media metadata.
type MediaRecord struct {
	ID           string         `gorm:"type:varchar(40);primaryKey"`
	OwnerID      string         `gorm:"type:varchar(128);not null;index:idx_media_records_owner_created,priority:1"`
	StorageKey   string         `gorm:"type:varchar(512);not null"`
	OriginalName string         `gorm:"type:varchar(512);not null"`
	MediaKind    string         `gorm:"type:varchar(16);not null"`
	SizeBytes    int64          `gorm:"not null"`
	MimeType     string         `gorm:"type:varchar(128);not null"`
	BlobRef      string         `gorm:"type:text;not null"`
	ThumbnailRef *string        `gorm:"type:text"`
	Description  *string        `gorm:"type:text"`
	Tags         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_media_records_owner_created,priority:2"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

func (MediaRecord) TableName() string {
	return "media_records"
}
