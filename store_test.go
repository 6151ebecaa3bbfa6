package alchemy

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/alchemy/metadata"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateImage(context.Background(), &Image{UserID: "u", Filename: "a.jpg", URL: "/a"}))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	images, err := s.ListImages(context.Background(), "u")
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestCreateAndGetImage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	img := &Image{UserID: "admin_a", Filename: "cabin.jpg", URL: "/public/uploads/cabin.jpg", Size: 2048}
	require.NoError(t, s.CreateImage(ctx, img))
	assert.NotEmpty(t, img.ID)
	assert.Equal(t, StatusProcessing, img.Status)
	assert.False(t, img.CreatedAt.IsZero())

	got, err := s.GetImage(ctx, "admin_a", img.ID)
	require.NoError(t, err)
	assert.Equal(t, "cabin.jpg", got.Filename)
	assert.Equal(t, int64(2048), got.Size)

	_, err = s.GetImage(ctx, "admin_b", img.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.ImageByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin_a", byID.UserID)

	_, err = s.ImageByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListImagesNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"old", "mid", "new"} {
		require.NoError(t, s.CreateImage(ctx, &Image{
			UserID: "u", Filename: name, URL: "/" + name, Size: int64(100 * (i + 1)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.CreateImage(ctx, &Image{UserID: "other", Filename: "x", URL: "/x", Size: 999}))

	images, err := s.ListImages(ctx, "u")
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, "new", images[0].Filename)
	assert.Equal(t, "old", images[2].Filename)

	total, err := s.TotalSize(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(600), total)

	empty, err := s.ListImages(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	none, err := s.TotalSize(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestSetResultAndUpdateImage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	img := &Image{UserID: "u", Filename: "a.jpg", URL: "/a.jpg"}
	require.NoError(t, s.CreateImage(ctx, img))

	md := metadata.Parse(modelOutput)
	require.NoError(t, s.SetResult(ctx, img.ID, StatusComplete, md, ""))

	got, err := s.GetImage(ctx, "u", img.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, md, got.Metadata)
	assert.Empty(t, got.Error)

	md.Title = "Edited"
	require.NoError(t, s.UpdateImage(ctx, "u", img.ID, md, "https://shop.test/p/1"))
	got, err = s.GetImage(ctx, "u", img.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Metadata.Title)
	assert.Equal(t, "https://shop.test/p/1", got.Link)

	assert.ErrorIs(t, s.UpdateImage(ctx, "intruder", img.ID, md, ""), ErrNotFound)
	assert.ErrorIs(t, s.SetResult(ctx, "missing", StatusFailed, metadata.Record{}, "boom"), ErrNotFound)
}

func TestDeleteImagesOnlyOwned(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	mine := &Image{UserID: "u", Filename: "mine.jpg", URL: "/m"}
	theirs := &Image{UserID: "v", Filename: "theirs.jpg", URL: "/t"}
	require.NoError(t, s.CreateImage(ctx, mine))
	require.NoError(t, s.CreateImage(ctx, theirs))

	deleted, err := s.DeleteImages(ctx, "u", []string{mine.ID, theirs.ID})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "mine.jpg", deleted[0].Filename)

	_, err = s.ImageByID(ctx, theirs.ID)
	assert.NoError(t, err)

	deleted, err = s.DeleteImages(ctx, "u", nil)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestListExpiredAndDeleteByIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	old := &Image{UserID: "u", Filename: "old", URL: "/o", CreatedAt: now.Add(-4 * time.Hour)}
	fresh := &Image{UserID: "v", Filename: "fresh", URL: "/f", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, s.CreateImage(ctx, old))
	require.NoError(t, s.CreateImage(ctx, fresh))

	expired, err := s.ListExpired(ctx, now.Add(-3*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)

	n, err := s.DeleteByIDs(ctx, []string{old.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListByStatusOldestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	newer := &Image{UserID: "u", Filename: "b", URL: "/b", CreatedAt: now}
	older := &Image{UserID: "v", Filename: "a", URL: "/a", CreatedAt: now.Add(-time.Hour)}
	done := &Image{UserID: "u", Filename: "c", URL: "/c", Status: StatusComplete, CreatedAt: now}
	for _, img := range []*Image{newer, older, done} {
		require.NoError(t, s.CreateImage(ctx, img))
	}

	pending, err := s.ListByStatus(ctx, StatusProcessing)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, newer.ID, pending[1].ID)

	none, err := s.ListByStatus(ctx, StatusFailed)
	require.NoError(t, err)
	assert.Empty(t, none)
}
