package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/utils/platformerrors"
)

// Repository keeps media records in process memory. It mirrors the ordering and
// matching rules of the SQL repository and is meant for development and tests.
type Repository struct {
	mu      sync.RWMutex
	records map[string]domain.MediaRecord
}

func NewRepository() *Repository {
	return &Repository{records: make(map[string]domain.MediaRecord)}
}

func (r *Repository) Create(ctx context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.ID]; exists {
		return nil, platformerrors.NewError(ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			platformerrors.CodeRepositoryUnavailable,
			"media record already exists",
			nil,
			"61f0a3d5-2c7e-4b98-a14f-9e3d6b0c5a82",
		)
	}
	r.records[rec.ID] = clone(*rec)
	out := clone(*rec)
	return &out, nil
}

func (r *Repository) GetByID(ctx context.Context, id, ownerID string) (*domain.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, nil
	}
	out := clone(rec)
	return &out, nil
}

func (r *Repository) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return "", false, nil
	}
	return rec.OwnerID, true, nil
}

func (r *Repository) ListByOwner(ctx context.Context, query domain.ListQuery) ([]*domain.MediaRecord, int64, error) {
	match := func(rec domain.MediaRecord) bool {
		return query.Kind == nil || rec.MediaKind == *query.Kind
	}
	return r.page(query.OwnerID, query.Page, query.PageSize, match), r.count(query.OwnerID, match), nil
}

func (r *Repository) Search(ctx context.Context, query domain.SearchQuery) ([]*domain.MediaRecord, int64, error) {
	needle := strings.ToLower(strings.TrimSpace(query.Text))
	match := func(rec domain.MediaRecord) bool { return matches(rec, needle) }
	return r.page(query.OwnerID, query.Page, query.PageSize, match), r.count(query.OwnerID, match), nil
}

func (r *Repository) Update(ctx context.Context, id, ownerID string, changes domain.Changeset) (*domain.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, notFound(ctx, id)
	}
	if changes.Description != nil {
		description := *changes.Description
		rec.Description = &description
	}
	if changes.Tags != nil {
		rec.Tags = append([]string{}, (*changes.Tags)...)
	}
	rec.UpdatedAt = changes.UpdatedAt
	r.records[id] = rec

	out := clone(rec)
	return &out, nil
}

func (r *Repository) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.OwnerID != ownerID {
		return notFound(ctx, id)
	}
	delete(r.records, id)
	return nil
}

func (r *Repository) page(ownerID string, page, pageSize int, keep func(domain.MediaRecord) bool) []*domain.MediaRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var selected []domain.MediaRecord
	for _, rec := range r.records {
		if rec.OwnerID == ownerID && keep(rec) {
			selected = append(selected, rec)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if !selected[i].CreatedAt.Equal(selected[j].CreatedAt) {
			return selected[i].CreatedAt.After(selected[j].CreatedAt)
		}
		return selected[i].ID > selected[j].ID
	})

	start := (page - 1) * pageSize
	if page < 1 || pageSize < 1 || start >= len(selected) {
		return []*domain.MediaRecord{}
	}
	end := start + pageSize
	if end > len(selected) {
		end = len(selected)
	}
	out := make([]*domain.MediaRecord, 0, end-start)
	for _, rec := range selected[start:end] {
		c := clone(rec)
		out = append(out, &c)
	}
	return out
}

func (r *Repository) count(ownerID string, keep func(domain.MediaRecord) bool) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, rec := range r.records {
		if rec.OwnerID == ownerID && keep(rec) {
			total++
		}
	}
	return total
}

// matches applies case-insensitive substring matching to name, description and each tag.
func matches(rec domain.MediaRecord, needle string) bool {
	if strings.Contains(strings.ToLower(rec.OriginalName), needle) {
		return true
	}
	if rec.Description != nil && strings.Contains(strings.ToLower(*rec.Description), needle) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func clone(rec domain.MediaRecord) domain.MediaRecord {
	if rec.Description != nil {
		description := *rec.Description
		rec.Description = &description
	}
	if rec.ThumbnailRef != nil {
		ref := *rec.ThumbnailRef
		rec.ThumbnailRef = &ref
	}
	if rec.Tags != nil {
		rec.Tags = append([]string{}, rec.Tags...)
	}
	return rec
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		platformerrors.CodeNotFound,
		"media record not found",
		nil,
		"8c3b5e1a-0f26-4d79-b4e8-2a7c9d1f6e03",
		map[string]any{"media_id": id},
	)
}

// Ping always succeeds.
func (r *Repository) Ping(ctx context.Context) error {
	return nil
}
