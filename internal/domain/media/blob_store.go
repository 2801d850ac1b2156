package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"mediavault/services/media-api/utils/mediaid"
)

// ErrObjectNotFound is returned by Storage when a key holds no object.
var ErrObjectNotFound = errors.New("storage object not found")

const (
	thumbnailSuffix      = ".thumb.jpg"
	thumbnailContentType = "image/jpeg"
)

// Storage is the raw object backend (S3, local filesystem).
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// StoredBlob identifies an uploaded object.
type StoredBlob struct {
	Key string
	Ref string
}

// BlobStore derives storage keys and moves bytes in and out of Storage.
type BlobStore struct {
	storage Storage
}

func NewBlobStore(storage Storage) *BlobStore {
	return &BlobStore{storage: storage}
}

// Store uploads the primary asset under a fresh key scoped to the owner.
func (b *BlobStore) Store(ctx context.Context, ownerID, fileName, contentType string, data []byte) (StoredBlob, error) {
	return b.StoreStream(ctx, ownerID, fileName, contentType, bytes.NewReader(data), int64(len(data)))
}

// StoreStream is Store for payloads that are not held in memory. size must be exact.
func (b *BlobStore) StoreStream(ctx context.Context, ownerID, fileName, contentType string, body io.Reader, size int64) (StoredBlob, error) {
	key := BuildStorageKey(ownerID, mediaid.NewObjectID(), fileName)
	return b.put(ctx, key, contentType, body, size)
}

// StoreThumbnail uploads a JPEG preview next to the primary key.
func (b *BlobStore) StoreThumbnail(ctx context.Context, primaryKey string, data []byte) (StoredBlob, error) {
	return b.put(ctx, ThumbnailKey(primaryKey), thumbnailContentType, bytes.NewReader(data), int64(len(data)))
}

func (b *BlobStore) put(ctx context.Context, key, contentType string, body io.Reader, size int64) (StoredBlob, error) {
	if err := b.storage.Upload(ctx, key, body, size, contentType); err != nil {
		return StoredBlob{}, fmt.Errorf("upload %s: %w", key, err)
	}
	ref, err := b.storage.URL(ctx, key)
	if err != nil {
		return StoredBlob{}, fmt.Errorf("resolve url for %s: %w", key, err)
	}
	return StoredBlob{Key: key, Ref: ref}, nil
}

// Delete removes the object. Missing objects yield ErrObjectNotFound.
func (b *BlobStore) Delete(ctx context.Context, key string) error {
	return b.storage.Delete(ctx, key)
}

// Open streams the object back.
func (b *BlobStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return b.storage.Download(ctx, key)
}

// URL returns a dereferenceable pointer for key.
func (b *BlobStore) URL(ctx context.Context, key string) (string, error) {
	return b.storage.URL(ctx, key)
}

// BuildStorageKey combines owner, a unique object id and the sanitized name.
func BuildStorageKey(ownerID, objectID, fileName string) string {
	name := sanitizeFileName(fileName)
	if name == "" {
		name = objectID
	}
	return fmt.Sprintf("media/%s/%s/%s", sanitizeSegment(ownerID), objectID, name)
}

// ThumbnailKey is the sibling key holding the preview of primaryKey.
func ThumbnailKey(primaryKey string) string {
	return primaryKey + thumbnailSuffix
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	return sanitizeSegment(clean)
}

func sanitizeSegment(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
