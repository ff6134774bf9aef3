package etiquette

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumPhotoAssociation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	album, err := db.NewAlbum(ctx, "Vacation", "", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, writeTestFile(path))
	photo, err := db.NewPhoto(ctx, path, nil)
	require.NoError(t, err)

	require.NoError(t, db.AddPhotoToAlbum(ctx, album.ID, photo.ID))
	photos, err := db.WalkAlbumPhotos(ctx, album.ID, false)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, photo.ID, photos[0].ID)

	require.NoError(t, db.RemovePhotoFromAlbum(ctx, album.ID, photo.ID))
	photos, err = db.WalkAlbumPhotos(ctx, album.ID, false)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestWalkAlbumPhotosRecursive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	parent, err := db.NewAlbum(ctx, "Trip", "", nil)
	require.NoError(t, err)
	child, err := db.NewAlbum(ctx, "Day 1", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddAlbumChild(ctx, parent.ID, child.ID))

	path := filepath.Join(t.TempDir(), "b.jpg")
	require.NoError(t, writeTestFile(path))
	photo, err := db.NewPhoto(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, db.AddPhotoToAlbum(ctx, child.ID, photo.ID))

	direct, err := db.WalkAlbumPhotos(ctx, parent.ID, false)
	require.NoError(t, err)
	assert.Empty(t, direct)

	recursive, err := db.WalkAlbumPhotos(ctx, parent.ID, true)
	require.NoError(t, err)
	require.Len(t, recursive, 1)
	assert.Equal(t, photo.ID, recursive[0].ID)
}

func TestAddAlbumChildRejectsCycles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := db.NewAlbum(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := db.NewAlbum(ctx, "B", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddAlbumChild(ctx, a.ID, b.ID))

	err = db.AddAlbumChild(ctx, b.ID, a.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRecursiveGrouping))
}

func TestSumAlbumBytesAndPhotos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	album, err := db.NewAlbum(ctx, "Sized", "", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		path := filepath.Join(t.TempDir(), "p.jpg")
		require.NoError(t, writeTestFile(path))
		photo, err := db.NewPhoto(ctx, path, nil)
		require.NoError(t, err)
		require.NoError(t, db.AddPhotoToAlbum(ctx, album.ID, photo.ID))
	}

	totalBytes, totalPhotos, err := db.SumAlbumBytesAndPhotos(ctx, album.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 3, totalPhotos)
	assert.Greater(t, totalBytes, int64(0))
}

func TestAlbumByDirectory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	album, err := db.NewAlbum(ctx, "Dir", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddAssociatedDirectory(ctx, album.ID, "/photos/2024"))

	found, err := db.AlbumByDirectory(ctx, "/photos/2024")
	require.NoError(t, err)
	assert.Equal(t, album.ID, found.ID)

	_, err = db.AlbumByDirectory(ctx, "/nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchAlbum))
}

func TestAddAlbumChildReparentIsNoOpAndRejectsMove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := db.NewAlbum(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := db.NewAlbum(ctx, "B", "", nil)
	require.NoError(t, err)
	x, err := db.NewAlbum(ctx, "X", "", nil)
	require.NoError(t, err)

	require.NoError(t, db.AddAlbumChild(ctx, a.ID, x.ID))
	require.NoError(t, db.AddAlbumChild(ctx, a.ID, x.ID))

	err = db.AddAlbumChild(ctx, b.ID, x.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGroupExists))
}

func TestDeleteAlbumLiftsChildrenToGrandparent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip, err := db.NewAlbum(ctx, "Trip", "", nil)
	require.NoError(t, err)
	day, err := db.NewAlbum(ctx, "Day 1", "", nil)
	require.NoError(t, err)
	morning, err := db.NewAlbum(ctx, "Morning", "", nil)
	require.NoError(t, err)

	require.NoError(t, db.AddAlbumChild(ctx, trip.ID, day.ID))
	require.NoError(t, db.AddAlbumChild(ctx, day.ID, morning.ID))

	require.NoError(t, db.DeleteAlbum(ctx, day.ID, false))

	// morning is now directly under trip, so trip cannot become its child.
	err = db.AddAlbumChild(ctx, morning.ID, trip.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRecursiveGrouping))
}

func TestDeleteAlbumOrphansChildrenWhenRoot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	root, err := db.NewAlbum(ctx, "Root", "", nil)
	require.NoError(t, err)
	child, err := db.NewAlbum(ctx, "Child", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddAlbumChild(ctx, root.ID, child.ID))

	require.NoError(t, db.DeleteAlbum(ctx, root.ID, false))

	// Child is now parentless, so it can be freely grouped elsewhere.
	other, err := db.NewAlbum(ctx, "Other", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddAlbumChild(ctx, other.ID, child.ID))
}

func TestDeleteAlbumWithDeleteChildrenRemovesSubtree(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip, err := db.NewAlbum(ctx, "Trip", "", nil)
	require.NoError(t, err)
	day, err := db.NewAlbum(ctx, "Day 1", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddAlbumChild(ctx, trip.ID, day.ID))

	require.NoError(t, db.DeleteAlbum(ctx, trip.ID, true))

	_, err = db.GetAlbum(ctx, day.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchAlbum))
}
