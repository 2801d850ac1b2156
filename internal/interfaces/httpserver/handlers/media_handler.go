package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/auth"
	"mediavault/services/media-api/internal/infrastructure/metrics"
	"mediavault/services/media-api/internal/interfaces/httpserver/requests"
	"mediavault/services/media-api/internal/interfaces/httpserver/responses"
	"mediavault/services/media-api/internal/utils/platformerrors"
	"mediavault/services/media-api/utils/mediaid"
)

// multipartOverhead leaves room for form fields and part headers around the file.
const multipartOverhead = 1 << 20

// MediaHandler exposes media endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

// Upload godoc
// @Summary      Upload media
// @Description  Stores an image or video with optional description and JSON-array tags. Images get a JPEG thumbnail when one can be derived.
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "Image or video file"
// @Param        description  formData  string  false  "Description"
// @Param        tags         formData  string  false  "JSON array of strings, e.g. [\"beach\",\"sunset\"]"
// @Success      201          {object}  responses.MediaResponse
// @Failure      400          {object}  responses.ErrorResponse
// @Failure      401          {object}  responses.ErrorResponse
// @Failure      500          {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	limit := h.cfg.MaxUploadBytes()
	if c.Request.ContentLength > limit+multipartOverhead {
		h.rejectTooLarge(c, limit)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.rejectTooLarge(c, limit)
			return
		}
		metrics.RecordUpload("", metrics.StatusError, 0)
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, platformerrors.CodeInvalidRequest,
			"file is required", "2b7e9d14-c3a6-4f80-8e52-d1f04a6b9c37")
		return
	}
	if fileHeader.Size > limit {
		h.rejectTooLarge(c, limit)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		metrics.RecordUpload("", metrics.StatusError, 0)
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, platformerrors.CodeInvalidRequest,
			"failed to read uploaded file", "6d03f8a2-91b5-4c7e-a4d9-38e2b7c15f06")
		return
	}
	defer file.Close()

	in := domain.UploadInput{
		CallerID:    callerID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}
	if description, exists := c.GetPostForm("description"); exists {
		in.Description = &description
	}
	if tags, exists := c.GetPostForm("tags"); exists {
		in.TagsRaw = &tags
	}

	rec, err := h.service.Upload(c.Request.Context(), in)
	if err != nil {
		metrics.RecordUpload("", metrics.StatusError, 0)
		responses.HandleError(c, h.log, err, "failed to upload media")
		return
	}

	metrics.RecordUpload(string(rec.MediaKind), metrics.StatusSuccess, rec.SizeBytes)
	c.JSON(http.StatusCreated, responses.BuildMediaResponse(rec))
}

// List godoc
// @Summary      List media
// @Description  Returns the caller's media, newest first.
// @Tags         media
// @Produce      json
// @Param        page       query     int     false  "Page number (>= 1)"        default(1)
// @Param        pageSize   query     int     false  "Items per page (1..100)"   default(20)
// @Param        mediaType  query     string  false  "Filter by kind"            Enums(image, video)
// @Success      200        {object}  responses.MediaListResponse
// @Failure      400        {object}  responses.ErrorResponse
// @Failure      401        {object}  responses.ErrorResponse
// @Failure      500        {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media [get]
func (h *MediaHandler) List(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	var query requests.ListMediaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.rejectQuery(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), query.ToDomain(callerID))
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to list media")
		return
	}
	c.JSON(http.StatusOK, responses.BuildMediaListResponse(page))
}

// Search godoc
// @Summary      Search media
// @Description  Case-insensitive substring search over file name, description and tags of the caller's media.
// @Tags         media
// @Produce      json
// @Param        query     query     string  true   "Search text"
// @Param        page      query     int     false  "Page number (>= 1)"       default(1)
// @Param        pageSize  query     int     false  "Items per page (1..100)"  default(20)
// @Success      200       {object}  responses.MediaListResponse
// @Failure      400       {object}  responses.ErrorResponse
// @Failure      401       {object}  responses.ErrorResponse
// @Failure      500       {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/search [get]
func (h *MediaHandler) Search(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	var query requests.SearchMediaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.rejectQuery(c, err)
		return
	}

	page, err := h.service.Search(c.Request.Context(), query.ToDomain(callerID))
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to search media")
		return
	}
	c.JSON(http.StatusOK, responses.BuildMediaListResponse(page))
}

// Get godoc
// @Summary      Get media
// @Tags         media
// @Produce      json
// @Param        id   path      string  true  "Media ID"
// @Success      200  {object}  responses.MediaResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/{id} [get]
func (h *MediaHandler) Get(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	id, ok := h.mediaID(c)
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id, callerID)
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to get media")
		return
	}
	c.JSON(http.StatusOK, responses.BuildMediaResponse(rec))
}

// Update godoc
// @Summary      Update media metadata
// @Description  Replaces description and/or tags. Omitted or null fields are left unchanged.
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Media ID"
// @Param        request  body      requests.UpdateMediaRequest  true  "Fields to change"
// @Success      200      {object}  responses.MediaResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      401      {object}  responses.ErrorResponse
// @Failure      403      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/{id} [put]
func (h *MediaHandler) Update(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	id, ok := h.mediaID(c)
	if !ok {
		return
	}

	var req requests.UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Field, "tags") {
			responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, platformerrors.CodeInvalidTagsFormat,
				"invalid tags format: must be a JSON array of strings", "9f4c2e7a-05d8-4b13-b6e1-7a3d9c0f2e58")
			return
		}
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, platformerrors.CodeInvalidRequest,
			"invalid request body", "d5a17b3e-6c09-4e2f-8b74-e0f3a9c6d128")
		return
	}

	rec, err := h.service.Update(c.Request.Context(), id, callerID, req.ToDomain())
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to update media")
		return
	}
	c.JSON(http.StatusOK, responses.BuildMediaResponse(rec))
}

// Delete godoc
// @Summary      Delete media
// @Description  Removes the blobs best-effort, then the metadata record.
// @Tags         media
// @Param        id   path  string  true  "Media ID"
// @Success      204  "No Content"
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/{id} [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	id, ok := h.mediaID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, callerID); err != nil {
		responses.HandleError(c, h.log, err, "failed to delete media")
		return
	}
	c.Status(http.StatusNoContent)
}

// Content godoc
// @Summary      Stream media bytes
// @Description  Streams the stored object through the API without exposing storage URLs.
// @Tags         media
// @Produce      octet-stream
// @Param        id   path      string  true  "Media ID"
// @Success      200  "binary data"
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/{id}/content [get]
func (h *MediaHandler) Content(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	id, ok := h.mediaID(c)
	if !ok {
		return
	}

	content, err := h.service.Open(c.Request.Context(), id, callerID)
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to read media")
		return
	}
	defer content.Body.Close()

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("inline", map[string]string{"filename": content.Record.OriginalName})
	c.DataFromReader(http.StatusOK, -1, contentType, content.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// URL godoc
// @Summary      Get media URL
// @Description  Returns a freshly issued URL for the stored object (presigned when the bucket is private).
// @Tags         media
// @Produce      json
// @Param        id   path      string  true  "Media ID"
// @Success      200  {object}  responses.MediaURLResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/{id}/url [get]
func (h *MediaHandler) URL(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	id, ok := h.mediaID(c)
	if !ok {
		return
	}

	url, err := h.service.Presign(c.Request.Context(), id, callerID)
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to resolve media url")
		return
	}
	c.JSON(http.StatusOK, responses.MediaURLResponse{ID: id, URL: url})
}

func (h *MediaHandler) caller(c *gin.Context) (string, bool) {
	callerID, ok := auth.UserID(c)
	if !ok {
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeUnauthorized, platformerrors.CodeUnauthorized,
			"authentication required", "47c0e9b5-2a1f-4d86-9e3c-b8f5d02a7164")
		return "", false
	}
	return callerID, true
}

// mediaID answers NOT_FOUND for ids that cannot name a record.
func (h *MediaHandler) mediaID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if !mediaid.IsValid(id) {
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeNotFound, platformerrors.CodeNotFound,
			"media not found", "3e7b0d29-84c1-4f56-a2e9-c0d5f8b16a47")
		return "", false
	}
	return id, true
}

func (h *MediaHandler) rejectTooLarge(c *gin.Context, limit int64) {
	metrics.RecordUpload("", metrics.StatusError, 0)
	responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, platformerrors.CodeFileTooLarge,
		fmt.Sprintf("file too large: uploads are limited to %d bytes", limit), "0a6f3c8d-b492-4e17-9d5a-c2e8f1b7a403")
}

func (h *MediaHandler) rejectQuery(c *gin.Context, err error) {
	responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, platformerrors.CodeInvalidRequest,
		"invalid query parameters: "+err.Error(), "e81d4a6f-3c27-4b90-a5e8-0f9b2d7c6a31")
}
