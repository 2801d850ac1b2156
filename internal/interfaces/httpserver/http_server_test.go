package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/auth"
	"mediavault/services/media-api/internal/infrastructure/repository/memory"
	"mediavault/services/media-api/internal/infrastructure/storage"
	"mediavault/services/media-api/internal/infrastructure/thumbnail"
	"mediavault/services/media-api/internal/interfaces/httpserver"
	"mediavault/services/media-api/internal/interfaces/httpserver/responses"
	"mediavault/services/media-api/utils/mediaid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handler http.Handler
}

func newTestServer(t *testing.T, checks httpserver.ReadinessChecks) *testServer {
	t.Helper()

	cfg := &config.Config{
		ServiceName:           "media-api",
		Environment:           "test",
		LocalStoragePath:      t.TempDir(),
		LocalStorageBaseURL:   "http://localhost:8285/files",
		MaxImageBytes:         64 * 1024,
		MaxVideoBytes:         128 * 1024,
		ThumbnailMaxDimension: 32,
		ThumbnailQuality:      80,
	}
	log := zerolog.Nop()

	local, err := storage.NewLocalStorage(cfg, log)
	require.NoError(t, err)
	validator, err := auth.NewValidator(context.Background(), cfg, log)
	require.NoError(t, err)

	service := domain.NewService(cfg, memory.NewRepository(), local, thumbnail.NewDeriver(cfg, log), nil, log)
	server := httpserver.New(cfg, log, service, validator, checks)
	return &testServer{handler: server.Handler()}
}

func (s *testServer) do(t *testing.T, method, target, userID string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type uploadForm struct {
	fileName    string
	contentType string
	data        []byte
	fields      map[string]string
}

func (s *testServer) upload(t *testing.T, userID string, form uploadForm) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if form.data != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+form.fileName+`"`)
		header.Set("Content-Type", form.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(form.data)
		require.NoError(t, err)
	}
	for name, value := range form.fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())
	return s.do(t, http.MethodPost, "/v1/media", userID, &buf, writer.FormDataContentType())
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) uploadImage(t *testing.T, userID, name string, fields map[string]string) responses.MediaResponse {
	t.Helper()
	rec := s.upload(t, userID, uploadForm{fileName: name, contentType: "image/png", data: pngBytes(t, 80, 40), fields: fields})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[responses.MediaResponse](t, rec)
}

func TestUploadImage(t *testing.T) {
	srv := newTestServer(t, nil)
	data := pngBytes(t, 80, 40)

	rec := srv.upload(t, "alice", uploadForm{
		fileName:    "beach day.png",
		contentType: "image/png",
		data:        data,
		fields:      map[string]string{"description": "Sunny", "tags": `["beach","sea"]`},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, field := range []string{"id", "userId", "fileName", "originalFileName", "mediaType", "fileSize", "mimeType", "blobUrl", "thumbnailUrl", "description", "tags", "uploadedAt", "updatedAt"} {
		assert.Contains(t, raw, field)
	}

	media := decode[responses.MediaResponse](t, rec)
	assert.True(t, strings.HasPrefix(media.ID, "med_"))
	assert.Equal(t, "alice", media.UserID)
	assert.Equal(t, "beach day.png", media.OriginalFileName)
	assert.Equal(t, "image", media.MediaType)
	assert.Equal(t, int64(len(data)), media.FileSize)
	assert.Equal(t, "image/png", media.MimeType)
	assert.True(t, strings.HasPrefix(media.BlobURL, "http://localhost:8285/files/media/alice/"))
	require.NotNil(t, media.ThumbnailURL)
	assert.True(t, strings.HasSuffix(*media.ThumbnailURL, ".thumb.jpg"))
	assert.Equal(t, "Sunny", *media.Description)
	assert.Equal(t, []string{"beach", "sea"}, media.Tags)
}

func TestUploadRejections(t *testing.T) {
	srv := newTestServer(t, nil)

	cases := []struct {
		name   string
		form   uploadForm
		status int
		code   string
	}{
		{
			name:   "missing file",
			form:   uploadForm{fields: map[string]string{"description": "nothing"}},
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "document",
			form:   uploadForm{fileName: "notes.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")},
			status: http.StatusBadRequest,
			code:   "INVALID_MEDIA_TYPE",
		},
		{
			name:   "image over limit",
			form:   uploadForm{fileName: "huge.png", contentType: "image/png", data: bytes.Repeat([]byte{1}, 100*1024)},
			status: http.StatusBadRequest,
			code:   "FILE_TOO_LARGE",
		},
		{
			name:   "request over limit",
			form:   uploadForm{fileName: "huge.mp4", contentType: "video/mp4", data: bytes.Repeat([]byte{1}, 2*1024*1024)},
			status: http.StatusBadRequest,
			code:   "FILE_TOO_LARGE",
		},
		{
			name:   "tags not an array",
			form:   uploadForm{fileName: "a.png", contentType: "image/png", data: pngBytes(t, 4, 4), fields: map[string]string{"tags": "beach,sea"}},
			status: http.StatusBadRequest,
			code:   "INVALID_TAGS_FORMAT",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.upload(t, "alice", tc.form)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decode[responses.ErrorResponse](t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.RequestID)
		})
	}

	list := srv.do(t, http.MethodGet, "/v1/media", "alice", nil, "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Zero(t, decode[responses.MediaListResponse](t, list).Total)
}

func TestRequiresCallerIdentity(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/v1/media", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[responses.ErrorResponse](t, rec).Code)
}

func TestListPaginationAndFilters(t *testing.T) {
	srv := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		srv.uploadImage(t, "alice", "photo.png", nil)
	}
	video := srv.upload(t, "alice", uploadForm{fileName: "clip.mp4", contentType: "video/mp4", data: []byte("not really a video")})
	require.Equal(t, http.StatusCreated, video.Code, video.Body.String())
	srv.uploadImage(t, "bob", "bob.png", nil)

	rec := srv.do(t, http.MethodGet, "/v1/media?page=1&pageSize=2", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[responses.MediaListResponse](t, rec)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "video", page.Items[0].MediaType)
	assert.Nil(t, page.Items[0].ThumbnailURL)

	rec = srv.do(t, http.MethodGet, "/v1/media?mediaType=image", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[responses.MediaListResponse](t, rec)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 20, page.PageSize)

	rec = srv.do(t, http.MethodGet, "/v1/media?page=9", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[responses.MediaListResponse](t, rec)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	for _, query := range []string{"page=0", "pageSize=0", "pageSize=101", "page=abc", "mediaType=audio"} {
		rec = srv.do(t, http.MethodGet, "/v1/media?"+query, "alice", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Equal(t, "INVALID_REQUEST", decode[responses.ErrorResponse](t, rec).Code, query)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.uploadImage(t, "alice", "harbor.png", map[string]string{"tags": `["Boats"]`})
	srv.uploadImage(t, "alice", "city.png", map[string]string{"description": "boats at night"})
	srv.uploadImage(t, "alice", "forest.png", nil)
	srv.uploadImage(t, "bob", "boats.png", nil)

	rec := srv.do(t, http.MethodGet, "/v1/media/search?query=BOATS", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[responses.MediaListResponse](t, rec)
	assert.Equal(t, int64(2), page.Total)
	for _, item := range page.Items {
		assert.Equal(t, "alice", item.UserID)
	}

	rec = srv.do(t, http.MethodGet, "/v1/media/search?query=%20%20", "alice", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUERY", decode[responses.ErrorResponse](t, rec).Code)
}

func TestOwnershipAndMissingMedia(t *testing.T) {
	srv := newTestServer(t, nil)
	media := srv.uploadImage(t, "alice", "a.png", nil)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := srv.do(t, method, "/v1/media/"+media.ID, "bob", nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, method)
		assert.Equal(t, "FORBIDDEN", decode[responses.ErrorResponse](t, rec).Code)

		rec = srv.do(t, method, "/v1/media/med_missing", "bob", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.Equal(t, "NOT_FOUND", decode[responses.ErrorResponse](t, rec).Code)
	}

	rec := srv.do(t, http.MethodPut, "/v1/media/"+media.ID, "bob", strings.NewReader(`{"description":"x"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodGet, "/v1/media/"+media.ID+"/content", "bob", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/media/"+media.ID, "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, media.ID, decode[responses.MediaResponse](t, rec).ID)
}

func TestMalformedAndUnknownIDsAreNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.uploadImage(t, "alice", "a.png", nil)

	for _, id := range []string{"not-an-id", "med_", "med_zzzz", mediaid.New()} {
		for _, target := range []string{"/v1/media/" + id, "/v1/media/" + id + "/content", "/v1/media/" + id + "/url"} {
			rec := srv.do(t, http.MethodGet, target, "alice", nil, "")
			assert.Equal(t, http.StatusNotFound, rec.Code, target)
			assert.Equal(t, "NOT_FOUND", decode[responses.ErrorResponse](t, rec).Code, target)
		}
		rec := srv.do(t, http.MethodPut, "/v1/media/"+id, "alice", strings.NewReader(`{"description":"x"}`), "application/json")
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		rec = srv.do(t, http.MethodDelete, "/v1/media/"+id, "alice", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestUploadVideoStreamsToStorage(t *testing.T) {
	srv := newTestServer(t, nil)
	data := bytes.Repeat([]byte("frame"), 20*1024)

	rec := srv.upload(t, "alice", uploadForm{fileName: "clip.mp4", contentType: "video/mp4", data: data})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	media := decode[responses.MediaResponse](t, rec)
	assert.Equal(t, int64(len(data)), media.FileSize)
	assert.Nil(t, media.ThumbnailURL)

	rec = srv.do(t, http.MethodGet, "/v1/media/"+media.ID+"/content", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestUpdate(t *testing.T) {
	srv := newTestServer(t, nil)
	media := srv.uploadImage(t, "alice", "a.png", map[string]string{"tags": `["one"]`})

	rec := srv.do(t, http.MethodPut, "/v1/media/"+media.ID, "alice", strings.NewReader(`{"description":"new words"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[responses.MediaResponse](t, rec)
	assert.Equal(t, "new words", *updated.Description)
	assert.Equal(t, []string{"one"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.After(media.UpdatedAt))
	assert.True(t, updated.UploadedAt.Equal(media.UploadedAt))

	rec = srv.do(t, http.MethodPut, "/v1/media/"+media.ID, "alice", strings.NewReader(`{"tags":[],"description":null}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = decode[responses.MediaResponse](t, rec)
	assert.Equal(t, []string{}, updated.Tags)
	assert.Equal(t, "new words", *updated.Description)

	for _, body := range []string{`{"tags":"beach"}`, `{"tags":[1,2]}`} {
		rec = srv.do(t, http.MethodPut, "/v1/media/"+media.ID, "alice", strings.NewReader(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "INVALID_TAGS_FORMAT", decode[responses.ErrorResponse](t, rec).Code, body)
	}

	rec = srv.do(t, http.MethodPut, "/v1/media/"+media.ID, "alice", strings.NewReader(`{not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[responses.ErrorResponse](t, rec).Code)
}

func TestDelete(t *testing.T) {
	srv := newTestServer(t, nil)
	media := srv.uploadImage(t, "alice", "a.png", nil)

	rec := srv.do(t, http.MethodDelete, "/v1/media/"+media.ID, "alice", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/v1/media/"+media.ID, "alice", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodDelete, "/v1/media/"+media.ID, "alice", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentAndURL(t *testing.T) {
	srv := newTestServer(t, nil)
	data := pngBytes(t, 16, 16)
	rec := srv.upload(t, "alice", uploadForm{fileName: "tiny.png", contentType: "image/png", data: data})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	media := decode[responses.MediaResponse](t, rec)

	rec = srv.do(t, http.MethodGet, "/v1/media/"+media.ID+"/content", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=tiny.png`)
	assert.Equal(t, data, rec.Body.Bytes())

	rec = srv.do(t, http.MethodGet, "/v1/media/"+media.ID+"/url", "alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	url := decode[responses.MediaURLResponse](t, rec)
	assert.Equal(t, media.ID, url.ID)
	assert.Equal(t, media.BlobURL, url.URL)
}

func TestCoreRoutes(t *testing.T) {
	srv := newTestServer(t, httpserver.ReadinessChecks{
		"storage": func(ctx context.Context) error { return nil },
	})

	rec := srv.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/readyz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mediavault_media_api_")

	degraded := newTestServer(t, httpserver.ReadinessChecks{
		"database": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	rec = degraded.do(t, http.MethodGet, "/readyz", "", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
