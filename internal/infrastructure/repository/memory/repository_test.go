package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/utils/platformerrors"
)

func record(id, owner string, offset time.Duration) *domain.MediaRecord {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	return &domain.MediaRecord{
		ID:           id,
		OwnerID:      owner,
		OriginalName: id + ".png",
		MediaKind:    domain.MediaKindImage,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	rec := record("med_1", "alice", 0)
	rec.Tags = []string{"one"}
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	rec.Tags[0] = "mutated"
	got, err := repo.GetByID(ctx, "med_1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got.Tags)

	got.Tags[0] = "mutated again"
	again, err := repo.GetByID(ctx, "med_1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, again.Tags)
}

func TestRepositoryOwnerScoping(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, record("med_1", "alice", 0))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "med_1", "bob")
	require.NoError(t, err)
	assert.Nil(t, got)

	owner, found, err := repo.OwnerOf(ctx, "med_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", owner)

	err = repo.Delete(ctx, "med_1", "bob")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRepositoryPaging(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		_, err := repo.Create(ctx, record(fmt.Sprintf("med_%02d", i), "alice", time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	for page, want := range map[int]int{1: 20, 2: 20, 3: 5, 4: 0} {
		items, total, err := repo.ListByOwner(ctx, domain.ListQuery{OwnerID: "alice", Page: page, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(45), total)
		assert.Len(t, items, want)
	}

	items, _, err := repo.ListByOwner(ctx, domain.ListQuery{OwnerID: "alice", Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, "med_04", items[0].ID)
	assert.Equal(t, "med_00", items[4].ID)
}

func TestRepositorySearch(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	tagged := record("med_tag", "alice", 0)
	tagged.Tags = []string{"Vacation"}
	described := record("med_desc", "alice", time.Second)
	description := "family vacation"
	described.Description = &description
	_, err := repo.Create(ctx, tagged)
	require.NoError(t, err)
	_, err = repo.Create(ctx, described)
	require.NoError(t, err)
	_, err = repo.Create(ctx, record("med_other", "alice", 2*time.Second))
	require.NoError(t, err)

	items, total, err := repo.Search(ctx, domain.SearchQuery{OwnerID: "alice", Text: "VACATION", Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "med_desc", items[0].ID)
	assert.Equal(t, "med_tag", items[1].ID)
}

func TestRepositoryUpdate(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	rec := record("med_1", "alice", 0)
	rec.Tags = []string{"a"}
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	description := "updated"
	later := rec.UpdatedAt.Add(time.Minute)
	updated, err := repo.Update(ctx, "med_1", "alice", domain.Changeset{Description: &description, UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, "updated", *updated.Description)
	assert.Equal(t, []string{"a"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.Equal(later))

	_, err = repo.Update(ctx, "missing", "alice", domain.Changeset{UpdatedAt: later})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
