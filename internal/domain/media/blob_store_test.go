package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStorage struct {
	uploads map[string]string
	failURL bool
}

func (s *recordingStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	s.uploads[key] = contentType
	return nil
}

func (s *recordingStorage) URL(ctx context.Context, key string) (string, error) {
	if s.failURL {
		return "", errors.New("no url")
	}
	return "https://blobs.example.com/" + key, nil
}

func (s *recordingStorage) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("")), s.uploads[key], nil
}

func (s *recordingStorage) Delete(ctx context.Context, key string) error {
	delete(s.uploads, key)
	return nil
}

func TestBlobStoreStoreAndThumbnail(t *testing.T) {
	storage := &recordingStorage{uploads: map[string]string{}}
	store := NewBlobStore(storage)
	ctx := context.Background()

	primary, err := store.Store(ctx, "alice", "My Photo.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(primary.Key, "media/alice/"))
	assert.True(t, strings.HasSuffix(primary.Key, "/My-Photo.png"))
	assert.Equal(t, "https://blobs.example.com/"+primary.Key, primary.Ref)
	assert.Equal(t, "image/png", storage.uploads[primary.Key])

	thumb, err := store.StoreThumbnail(ctx, primary.Key, []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailKey(primary.Key), thumb.Key)
	assert.Equal(t, "image/jpeg", storage.uploads[thumb.Key])

	second, err := store.Store(ctx, "alice", "My Photo.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, primary.Key, second.Key, "same name uploads never collide")
}

func TestBlobStorePropagatesURLFailure(t *testing.T) {
	store := NewBlobStore(&recordingStorage{uploads: map[string]string{}, failURL: true})
	_, err := store.Store(context.Background(), "alice", "a.png", "image/png", []byte("x"))
	assert.Error(t, err)
}

func TestBuildStorageKey(t *testing.T) {
	assert.Equal(t, "media/alice/01abc/photo.png", BuildStorageKey("alice", "01abc", "photo.png"))
	assert.Equal(t, "media/alice/01abc/passwd", BuildStorageKey("alice", "01abc", "../../etc/passwd"))
	assert.Equal(t, "media/alice/01abc/evil.jpg", BuildStorageKey("alice", "01abc", `C:\Users\evil.jpg`))
	assert.Equal(t, "media/alice/01abc/01abc", BuildStorageKey("alice", "01abc", ""))
	assert.Equal(t, "media/aliceevil/01abc/x.png", BuildStorageKey("alice/evil", "01abc", "x.png"))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "media/a/b/c.png.thumb.jpg", ThumbnailKey("media/a/b/c.png"))
}
