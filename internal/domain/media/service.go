package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mediavault/services/media-api/internal/config"
	"mediavault/services/media-api/internal/utils/platformerrors"
	"mediavault/services/media-api/utils/mediaid"
)

const (
	tracerName = "mediavault/media-api/media"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Repository defines persistence operations needed by the service.
// Every method except OwnerOf is scoped to ownerID and treats foreign rows as absent.
type Repository interface {
	Create(ctx context.Context, rec *MediaRecord) (*MediaRecord, error)
	GetByID(ctx context.Context, id, ownerID string) (*MediaRecord, error)
	OwnerOf(ctx context.Context, id string) (string, bool, error)
	ListByOwner(ctx context.Context, query ListQuery) ([]*MediaRecord, int64, error)
	Search(ctx context.Context, query SearchQuery) ([]*MediaRecord, int64, error)
	Update(ctx context.Context, id, ownerID string, changes Changeset) (*MediaRecord, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// Thumbnailer produces a small JPEG preview from image bytes.
type Thumbnailer interface {
	Derive(ctx context.Context, data []byte) ([]byte, error)
}

// Notifier tells the external workflow that a request happened.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Service orchestrates validation, blob storage, thumbnails and metadata persistence.
type Service struct {
	repo        Repository
	blobs       *BlobStore
	validator   *Validator
	thumbnailer Thumbnailer
	notifier    Notifier
	log         zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewService(cfg *config.Config, repo Repository, storage Storage, thumbnailer Thumbnailer, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		blobs:       NewBlobStore(storage),
		validator:   NewValidator(cfg.MaxImageBytes, cfg.MaxVideoBytes),
		thumbnailer: thumbnailer,
		notifier:    notifier,
		log:         log.With().Str("component", "media-service").Logger(),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
}

// Upload validates, stores and records a new asset.
func (s *Service) Upload(ctx context.Context, in UploadInput) (rec *MediaRecord, err error) {
	ctx, span := s.startSpan(ctx, "media.upload", in.CallerID, "")
	defer endSpan(span, &err)
	s.notify(ctx, "upload", in.CallerID, "")

	kind, err := s.validator.Classify(ctx, in.ContentType, in.FileName)
	if err != nil {
		return nil, err
	}
	size := int64(len(in.Data))
	if in.Size > size {
		size = in.Size
	}
	size, err = s.validator.CheckSize(ctx, kind, size)
	if err != nil {
		return nil, err
	}
	tags, err := ParseTags(ctx, in.TagsRaw)
	if err != nil {
		return nil, err
	}

	data := in.Data
	if data == nil && in.Body != nil && kind == MediaKindImage {
		data, err = readPayload(in.Body, s.validator.limitFor(kind))
		if err != nil {
			return nil, errUnreadablePayload(ctx, err)
		}
		if n := int64(len(data)); n > size {
			if size, err = s.validator.CheckSize(ctx, kind, n); err != nil {
				return nil, err
			}
		}
	}

	var primary StoredBlob
	if data == nil && in.Body != nil {
		primary, err = s.blobs.StoreStream(ctx, in.CallerID, in.FileName, in.ContentType, in.Body, size)
	} else {
		primary, err = s.blobs.Store(ctx, in.CallerID, in.FileName, in.ContentType, data)
	}
	if err != nil {
		return nil, errStorage(ctx, "failed to store media", err, "7f1c9e2b-6a4d-4e85-b3f0-2d8a5c9e1b64")
	}
	span.SetAttributes(attribute.String("media.kind", string(kind)), attribute.Int64("media.size_bytes", size))

	var thumbnail *StoredBlob
	if kind == MediaKindImage {
		thumbnail = s.deriveThumbnail(ctx, primary.Key, data)
	}

	now := s.timestamp()
	rec = &MediaRecord{
		ID:           mediaid.New(),
		OwnerID:      in.CallerID,
		StorageKey:   primary.Key,
		OriginalName: in.FileName,
		MediaKind:    kind,
		SizeBytes:    size,
		MimeType:     in.ContentType,
		BlobRef:      primary.Ref,
		Description:  in.Description,
		Tags:         tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if thumbnail != nil {
		ref := thumbnail.Ref
		rec.ThumbnailRef = &ref
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.removeBlob(ctx, primary.Key, "primary", rec.ID)
		if thumbnail != nil {
			s.removeBlob(ctx, thumbnail.Key, "thumbnail", rec.ID)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "persist media record")
	}

	s.log.Info().
		Str("media_id", created.ID).
		Str("owner_id", created.OwnerID).
		Str("media_kind", string(created.MediaKind)).
		Int64("size_bytes", created.SizeBytes).
		Bool("thumbnail", created.ThumbnailRef != nil).
		Msg("media uploaded")
	return created, nil
}

// List returns one page of the caller's media, optionally filtered by kind.
func (s *Service) List(ctx context.Context, in ListInput) (page *Page, err error) {
	ctx, span := s.startSpan(ctx, "media.list", in.CallerID, "")
	defer endSpan(span, &err)
	s.notify(ctx, "list", in.CallerID, "")

	pageNum, pageSize := normalizePage(in.Page, in.PageSize)
	items, total, err := s.repo.ListByOwner(ctx, ListQuery{
		OwnerID:  in.CallerID,
		Page:     pageNum,
		PageSize: pageSize,
		Kind:     in.Kind,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list media")
	}
	return &Page{Items: items, Total: total, Page: pageNum, PageSize: pageSize}, nil
}

// Search returns one page of the caller's media whose name, description or tags contain the query.
func (s *Service) Search(ctx context.Context, in SearchInput) (page *Page, err error) {
	ctx, span := s.startSpan(ctx, "media.search", in.CallerID, "")
	defer endSpan(span, &err)
	s.notify(ctx, "search", in.CallerID, "")

	text := strings.TrimSpace(in.Query)
	if text == "" {
		return nil, errInvalidQuery(ctx)
	}
	pageNum, pageSize := normalizePage(in.Page, in.PageSize)
	items, total, err := s.repo.Search(ctx, SearchQuery{
		OwnerID:  in.CallerID,
		Text:     text,
		Page:     pageNum,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "search media")
	}
	return &Page{Items: items, Total: total, Page: pageNum, PageSize: pageSize}, nil
}

// Get returns a single record owned by the caller.
func (s *Service) Get(ctx context.Context, id, callerID string) (rec *MediaRecord, err error) {
	ctx, span := s.startSpan(ctx, "media.get", callerID, id)
	defer endSpan(span, &err)
	s.notify(ctx, "get", callerID, id)

	return s.authorize(ctx, id, callerID)
}

// Update applies the fields present in patch and refreshes UpdatedAt.
func (s *Service) Update(ctx context.Context, id, callerID string, patch Patch) (rec *MediaRecord, err error) {
	ctx, span := s.startSpan(ctx, "media.update", callerID, id)
	defer endSpan(span, &err)
	s.notify(ctx, "update", callerID, id)

	existing, err := s.authorize(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	changes := Changeset{
		Description: patch.Description,
		UpdatedAt:   s.nextUpdatedAt(existing.UpdatedAt),
	}
	if patch.Tags != nil {
		tags := append([]string{}, (*patch.Tags)...)
		changes.Tags = &tags
	}

	updated, err := s.repo.Update(ctx, existing.ID, callerID, changes)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update media record")
	}
	return updated, nil
}

// Delete removes the blobs best-effort, then the metadata.
func (s *Service) Delete(ctx context.Context, id, callerID string) (err error) {
	ctx, span := s.startSpan(ctx, "media.delete", callerID, id)
	defer endSpan(span, &err)
	s.notify(ctx, "delete", callerID, id)

	rec, err := s.authorize(ctx, id, callerID)
	if err != nil {
		return err
	}

	s.removeBlob(ctx, rec.StorageKey, "primary", rec.ID)
	if rec.ThumbnailRef != nil {
		s.removeBlob(ctx, ThumbnailKey(rec.StorageKey), "thumbnail", rec.ID)
	}

	if err := s.repo.Delete(ctx, rec.ID, callerID); err != nil {
		// TODO: enqueue a reconciliation job that retries metadata deletion for records whose blobs are gone.
		s.log.Error().
			Err(err).
			Str("media_id", rec.ID).
			Str("storage_key", rec.StorageKey).
			Msg("metadata delete failed after blob removal; record now references missing blobs")
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete media record")
	}

	s.log.Info().Str("media_id", rec.ID).Str("owner_id", callerID).Msg("media deleted")
	return nil
}

// Open streams the stored bytes of a record owned by the caller.
func (s *Service) Open(ctx context.Context, id, callerID string) (content *Content, err error) {
	ctx, span := s.startSpan(ctx, "media.open", callerID, id)
	defer endSpan(span, &err)
	s.notify(ctx, "open", callerID, id)

	rec, err := s.authorize(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	body, contentType, err := s.blobs.Open(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, errNotFound(ctx, id)
		}
		return nil, errStorage(ctx, "failed to read media", err, "4a2d8f6c-1b9e-4370-95c3-e8f2a1d6b047")
	}
	if contentType == "" {
		contentType = rec.MimeType
	}
	return &Content{Body: body, ContentType: contentType, Record: rec}, nil
}

// Presign returns a fresh dereferenceable URL for a record owned by the caller.
func (s *Service) Presign(ctx context.Context, id, callerID string) (url string, err error) {
	ctx, span := s.startSpan(ctx, "media.presign", callerID, id)
	defer endSpan(span, &err)
	s.notify(ctx, "presign", callerID, id)

	rec, err := s.authorize(ctx, id, callerID)
	if err != nil {
		return "", err
	}
	url, err = s.blobs.URL(ctx, rec.StorageKey)
	if err != nil {
		return "", errStorage(ctx, "failed to resolve media url", err, "b86e3c1f-d205-4a97-8e4b-5f0c7a2d9163")
	}
	return url, nil
}

// authorize distinguishes a missing record (NotFound) from a foreign one (Forbidden).
func (s *Service) authorize(ctx context.Context, id, callerID string) (*MediaRecord, error) {
	ownerID, found, err := s.repo.OwnerOf(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "look up media owner")
	}
	if !found {
		return nil, errNotFound(ctx, id)
	}
	if ownerID != callerID {
		s.log.Warn().Str("media_id", id).Str("caller_id", callerID).Msg("access to foreign media denied")
		return nil, errForbidden(ctx, id)
	}

	rec, err := s.repo.GetByID(ctx, id, callerID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "get media")
	}
	if rec == nil {
		return nil, errNotFound(ctx, id)
	}
	return rec, nil
}

func (s *Service) deriveThumbnail(ctx context.Context, primaryKey string, data []byte) *StoredBlob {
	if s.thumbnailer == nil {
		return nil
	}
	thumb, err := s.thumbnailer.Derive(ctx, data)
	if err != nil {
		s.log.Warn().Err(err).Str("storage_key", primaryKey).Msg("thumbnail derivation failed, continuing without thumbnail")
		return nil
	}
	if len(thumb) == 0 {
		return nil
	}
	stored, err := s.blobs.StoreThumbnail(ctx, primaryKey, thumb)
	if err != nil {
		s.log.Warn().Err(err).Str("storage_key", primaryKey).Msg("failed to upload thumbnail, continuing without thumbnail")
		return nil
	}
	return &stored
}

func (s *Service) removeBlob(ctx context.Context, key, role, mediaID string) {
	err := s.blobs.Delete(ctx, key)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrObjectNotFound):
		s.log.Warn().Str("media_id", mediaID).Str("storage_key", key).Str("blob", role).Msg("blob already absent")
	default:
		s.log.Warn().Err(err).Str("media_id", mediaID).Str("storage_key", key).Str("blob", role).Msg("failed to delete blob, leaving orphan")
	}
}

// notify dispatches the workflow notification without waiting for it.
func (s *Service) notify(ctx context.Context, operation, callerID, mediaID string) {
	if s.notifier == nil {
		return
	}
	n := Notification{Operation: operation, CallerID: callerID, MediaID: mediaID, At: s.now().UTC()}
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("operation", operation).Msg("notifier panicked")
			}
		}()
		if err := s.notifier.Notify(notifyCtx, n); err != nil {
			s.log.Warn().Err(err).Str("operation", operation).Msg("workflow notification failed")
		}
	}()
}

// readPayload reads at most one byte past limit so oversized bodies are still detected.
func readPayload(body io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(body)
	}
	return io.ReadAll(io.LimitReader(body, limit+1))
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt keeps UpdatedAt strictly increasing even when the clock has not advanced.
func (s *Service) nextUpdatedAt(previous time.Time) time.Time {
	now := s.timestamp()
	if !now.After(previous) {
		now = previous.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

func (s *Service) startSpan(ctx context.Context, name, callerID, mediaID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("media.caller_id", callerID)}
	if mediaID != "" {
		attrs = append(attrs, attribute.String("media.id", mediaID))
	}
	return s.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
