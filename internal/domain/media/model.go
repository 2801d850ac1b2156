package media

import (
	"io"
	"time"
)

// MediaKind classifies an asset.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// IsValid reports whether the kind is one the service stores.
func (k MediaKind) IsValid() bool {
	return k == MediaKindImage || k == MediaKindVideo
}

// ParseMediaKind converts a filter value into a MediaKind.
func ParseMediaKind(value string) (MediaKind, bool) {
	kind := MediaKind(value)
	return kind, kind.IsValid()
}

// MediaRecord is the persisted metadata of one uploaded asset.
type MediaRecord struct {
	ID           string
	OwnerID      string
	StorageKey   string
	OriginalName string
	MediaKind    MediaKind
	SizeBytes    int64
	MimeType     string
	BlobRef      string
	ThumbnailRef *string
	Description  *string
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Changeset lists the fields an update writes. Nil pointers are left untouched.
type Changeset struct {
	Description *string
	Tags        *[]string
	UpdatedAt   time.Time
}

// Patch is the caller-supplied update. A nil field is absent; a non-nil empty value overwrites.
type Patch struct {
	Description *string
	Tags        *[]string
}

// UploadInput carries one inbound file and its form fields.
type UploadInput struct {
	CallerID    string
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
	// Body streams the payload when Data is nil. Size must then be its exact length.
	// Images are still read into memory for thumbnail derivation.
	Body io.Reader
	Description *string
	// TagsRaw is the JSON-encoded tag array as received from the caller.
	TagsRaw *string
}

// ListInput selects one page of the caller's media.
type ListInput struct {
	CallerID string
	Page     int
	PageSize int
	Kind     *MediaKind
}

// SearchInput selects one page of the caller's media matching Query.
type SearchInput struct {
	CallerID string
	Query    string
	Page     int
	PageSize int
}

// ListQuery is the repository form of ListInput.
type ListQuery struct {
	OwnerID  string
	Page     int
	PageSize int
	Kind     *MediaKind
}

// SearchQuery is the repository form of SearchInput.
type SearchQuery struct {
	OwnerID  string
	Text     string
	Page     int
	PageSize int
}

// Page is a slice of records plus the total number of matches.
type Page struct {
	Items    []*MediaRecord
	Total    int64
	Page     int
	PageSize int
}

// Content is an open stream of a stored asset.
type Content struct {
	Body        io.ReadCloser
	ContentType string
	Record      *MediaRecord
}

// Notification is sent to the external workflow once per request.
type Notification struct {
	Operation string    `json:"operation"`
	CallerID  string    `json:"caller_id"`
	MediaID   string    `json:"media_id,omitempty"`
	At        time.Time `json:"at"`
}
