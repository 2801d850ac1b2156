package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/database/entities"
	"mediavault/services/media-api/internal/utils/platformerrors"
)

const pageOrder = "created_at DESC, id DESC"

// Repository handles media record persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error) {
	tags, err := encodeTags(rec.Tags)
	if err != nil {
		return nil, dbError(ctx, "failed to encode media tags", err, "4d1a7e93-b2c6-4f08-9e35-71c8a0d2f6b4")
	}
	entity := entities.MediaRecord{
		ID:           rec.ID,
		OwnerID:      rec.OwnerID,
		StorageKey:   rec.StorageKey,
		OriginalName: rec.OriginalName,
		MediaKind:    string(rec.MediaKind),
		SizeBytes:    rec.SizeBytes,
		MimeType:     rec.MimeType,
		BlobRef:      rec.BlobRef,
		ThumbnailRef: rec.ThumbnailRef,
		Description:  rec.Description,
		Tags:         tags,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return nil, dbError(ctx, "failed to create media record", err, "9b2e4f5a-6c7d-4e8f-9a0b-1c2d3e4f5a6b")
	}
	return mapEntity(entity)
}

func (r *Repository) GetByID(ctx context.Context, id, ownerID string) (*domain.MediaRecord, error) {
	var entity entities.MediaRecord
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dbError(ctx, "failed to get media record", err, "2f4b6d8e-0a1c-4e3f-8b5d-7c9e1a3b5d7f")
	}
	return mapEntity(entity)
}

// OwnerOf reports who owns id without loading the rest of the row.
func (r *Repository) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	var entity entities.MediaRecord
	err := r.db.WithContext(ctx).Select("owner_id").Where("id = ?", id).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, dbError(ctx, "failed to look up media owner", err, "6a8c0e2f-4b7d-49a1-a3c5-e7f9b1d3a5c8")
	}
	return entity.OwnerID, true, nil
}

func (r *Repository) ListByOwner(ctx context.Context, query domain.ListQuery) ([]*domain.MediaRecord, int64, error) {
	scopes := []func(*gorm.DB) *gorm.DB{ownedBy(query.OwnerID)}
	if query.Kind != nil {
		scopes = append(scopes, ofKind(*query.Kind))
	}
	return r.page(ctx, query.Page, query.PageSize, scopes...)
}

func (r *Repository) Search(ctx context.Context, query domain.SearchQuery) ([]*domain.MediaRecord, int64, error) {
	return r.page(ctx, query.Page, query.PageSize, ownedBy(query.OwnerID), containing(r.db.Dialector.Name(), query.Text))
}

func (r *Repository) Update(ctx context.Context, id, ownerID string, changes domain.Changeset) (*domain.MediaRecord, error) {
	updates := map[string]any{"updated_at": changes.UpdatedAt}
	if changes.Description != nil {
		updates["description"] = *changes.Description
	}
	if changes.Tags != nil {
		tags, err := encodeTags(*changes.Tags)
		if err != nil {
			return nil, dbError(ctx, "failed to encode media tags", err, "c3e5a7b9-d1f2-4a4c-8e6a-0b2d4f6a8c1e")
		}
		updates["tags"] = tags
	}

	result := r.db.WithContext(ctx).
		Model(&entities.MediaRecord{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if result.Error != nil {
		return nil, dbError(ctx, "failed to update media record", result.Error, "5c6d7e8f-9a0b-4c1d-8e2f-3a4b5c6d7e8f")
	}
	if result.RowsAffected == 0 {
		return nil, notFound(ctx, id)
	}

	rec, err := r.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound(ctx, id)
	}
	return rec, nil
}

func (r *Repository) Delete(ctx context.Context, id, ownerID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&entities.MediaRecord{})
	if result.Error != nil {
		return dbError(ctx, "failed to delete media record", result.Error, "8e9f0a1b-2c3d-4e4f-9a6b-7c8d9e0f1a2b")
	}
	if result.RowsAffected == 0 {
		return notFound(ctx, id)
	}
	return nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) page(ctx context.Context, page, pageSize int, scopes ...func(*gorm.DB) *gorm.DB) ([]*domain.MediaRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entities.MediaRecord{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, 0, dbError(ctx, "failed to count media records", err, "1a3c5e7f-9b2d-4f6a-8c0e-2d4f6a8b0c3e")
	}

	items := []*domain.MediaRecord{}
	if total == 0 {
		return items, 0, nil
	}

	var rows []entities.MediaRecord
	err := r.db.WithContext(ctx).
		Scopes(scopes...).
		Order(pageOrder).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, dbError(ctx, "failed to list media records", err, "7b9d1f3a-5c8e-4a2b-9d4f-6e8a0c2e4b6d")
	}
	for _, row := range rows {
		rec, err := mapEntity(row)
		if err != nil {
			return nil, 0, dbError(ctx, "failed to decode media record", err, "0e2a4c6e-8b1d-4f3a-a5c7-9e1b3d5f7a9c")
		}
		items = append(items, rec)
	}
	return items, total, nil
}

func ownedBy(ownerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", ownerID)
	}
}

func ofKind(kind domain.MediaKind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("media_kind = ?", string(kind))
	}
}

// containing matches a case-insensitive substring of the name, the description or any single tag.
func containing(dialect, text string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			db.Session(&gorm.Session{NewDB: true}).
				Where(`LOWER(original_name) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\'`, pattern).
				Or(tagMatchClause(dialect), pattern),
		)
	}
}

// tagMatchClause expands the tags array so each element is matched on its own.
func tagMatchClause(dialect string) string {
	if dialect == "sqlite" {
		return `EXISTS (SELECT 1 FROM json_each(media_records.tags) AS tag WHERE LOWER(tag.value) LIKE ? ESCAPE '\')`
	}
	return `EXISTS (SELECT 1 FROM jsonb_array_elements_text(media_records.tags) AS tag(value) WHERE LOWER(tag.value) LIKE ? ESCAPE '\')`
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return nil, err
	}
	return datatypes.JSON(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func decodeTags(raw datatypes.JSON) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	tags := []string{}
	if err := json.Unmarshal(trimmed, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func mapEntity(entity entities.MediaRecord) (*domain.MediaRecord, error) {
	tags, err := decodeTags(entity.Tags)
	if err != nil {
		return nil, err
	}
	return &domain.MediaRecord{
		ID:           entity.ID,
		OwnerID:      entity.OwnerID,
		StorageKey:   entity.StorageKey,
		OriginalName: entity.OriginalName,
		MediaKind:    domain.MediaKind(entity.MediaKind),
		SizeBytes:    entity.SizeBytes,
		MimeType:     entity.MimeType,
		BlobRef:      entity.BlobRef,
		ThumbnailRef: entity.ThumbnailRef,
		Description:  entity.Description,
		Tags:         tags,
		CreatedAt:    entity.CreatedAt.UTC(),
		UpdatedAt:    entity.UpdatedAt.UTC(),
	}, nil
}

func dbError(ctx context.Context, message string, err error, uuid string) error {
	return platformerrors.NewError(ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		platformerrors.CodeRepositoryUnavailable,
		message,
		err,
		uuid,
	)
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		platformerrors.CodeNotFound,
		"media record not found",
		nil,
		"1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f",
		map[string]any{"media_id": id},
	)
}
