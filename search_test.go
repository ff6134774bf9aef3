package etiquette

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSearchFixture(t *testing.T, db *PhotoDB, ctx context.Context) (catID, dogID int64, catPhotoID, dogPhotoID int64) {
	t.Helper()

	animal, err := db.NewTag(ctx, "animal", "", nil)
	require.NoError(t, err)
	cat, err := db.NewTag(ctx, "cat", "", nil)
	require.NoError(t, err)
	dog, err := db.NewTag(ctx, "dog", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddTagChild(ctx, animal.ID, cat.ID))
	require.NoError(t, db.AddTagChild(ctx, animal.ID, dog.ID))

	dir := t.TempDir()
	catPath := filepath.Join(dir, "whiskers.jpg")
	dogPath := filepath.Join(dir, "rex.png")
	require.NoError(t, writeTestFile(catPath))
	require.NoError(t, writeTestFile(dogPath))

	catPhoto, err := db.NewPhoto(ctx, catPath, nil)
	require.NoError(t, err)
	dogPhoto, err := db.NewPhoto(ctx, dogPath, nil)
	require.NoError(t, err)

	require.NoError(t, db.AddTagToPhoto(ctx, catPhoto.ID, cat.ID))
	require.NoError(t, db.AddTagToPhoto(ctx, dogPhoto.ID, dog.ID))

	return cat.ID, dog.ID, catPhoto.ID, dogPhoto.ID
}

func TestSearchByHierarchicalTag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{TagExpression: "animal", YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.True(t, ids[dogPhotoID])
}

func TestSearchByTagExpressionExcludesOther(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{TagExpression: "cat AND NOT dog", YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.False(t, ids[dogPhotoID])
}

func TestSearchByExtension(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{Extensions: "png", YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[dogPhotoID])
	assert.False(t, ids[catPhotoID])
}

func TestSearchByFilenameExpression(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{FilenameExpression: "rex", YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[dogPhotoID])
	assert.False(t, ids[catPhotoID])
}

func TestSearchMalformedExpressionCollectedAsWarning(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	setupSearchFixture(t, db, ctx)

	bag := NewWarningBag()
	results, err := db.Search(ctx, SearchParams{TagExpression: "(unterminated", Warnings: bag, YieldPhotos: true})
	require.NoError(t, err)
	assert.False(t, bag.Empty())
	assert.NotEmpty(t, results.Photos)
}

func TestSearchMalformedExpressionRaisesWithoutBag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	setupSearchFixture(t, db, ctx)

	_, err := db.Search(ctx, SearchParams{TagExpression: "(unterminated", YieldPhotos: true})
	require.Error(t, err)
}

func TestSearchTagMustsAreHierarchical(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{TagMusts: []string{"animal"}, YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.True(t, ids[dogPhotoID])
}

func TestSearchTagForbidsExcludesDescendant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{TagForbids: []string{"dog"}, YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.False(t, ids[dogPhotoID])
}

func TestSearchTagMaysRequiresAtLeastOne(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{TagMays: []string{"cat"}, YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.False(t, ids[dogPhotoID])
}

func TestSearchTagExpressionAndTagMustsAreExclusive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	setupSearchFixture(t, db, ctx)

	bag := NewWarningBag()
	_, err := db.Search(ctx, SearchParams{
		TagExpression: "animal",
		TagMusts:      []string{"cat"},
		Warnings:      bag,
		YieldPhotos:   true,
	})
	require.NoError(t, err)
	assert.False(t, bag.Empty())
}

func TestSearchHasTagsFalseExcludesTaggedPhotos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	no := false
	results, err := db.Search(ctx, SearchParams{HasTags: &no, YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.False(t, ids[catPhotoID])
	assert.False(t, ids[dogPhotoID])
}

func TestSearchMimetypeFiltersByExtensionClass(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{Mimetype: []string{"image"}, YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.True(t, ids[dogPhotoID])
}

func TestSearchExtensionsNotExcludesMatchingExtension(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, _, catPhotoID, dogPhotoID := setupSearchFixture(t, db, ctx)

	results, err := db.Search(ctx, SearchParams{ExtensionsNot: "png", YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[catPhotoID])
	assert.False(t, ids[dogPhotoID])
}

func TestSearchAuthorFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user, err := db.NewUser(ctx, "searchauthor", []byte("hunter2hunter2"), "Search Author")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "authored.jpg")
	require.NoError(t, writeTestFile(path))
	photo, err := db.NewPhoto(ctx, path, &user.ID)
	require.NoError(t, err)

	otherPath := filepath.Join(dir, "unauthored.jpg")
	require.NoError(t, writeTestFile(otherPath))
	_, err = db.NewPhoto(ctx, otherPath, nil)
	require.NoError(t, err)

	results, err := db.Search(ctx, SearchParams{Author: []int64{user.ID}, YieldPhotos: true})
	require.NoError(t, err)
	ids := photoIDSet(results.Photos)
	assert.True(t, ids[photo.ID])
	assert.Len(t, results.Photos, 1)
}

func TestSearchOrderByMultiColumn(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"c.png", "a.gif", "b.jpg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, writeTestFile(path))
		_, err := db.NewPhoto(ctx, path, nil)
		require.NoError(t, err)
	}

	results, err := db.Search(ctx, SearchParams{
		OrderBy:     []OrderTerm{{Column: "extension", Desc: false}, {Column: "created", Desc: true}},
		YieldPhotos: true,
	})
	require.NoError(t, err)
	require.Len(t, results.Photos, 3)
	for i := 1; i < len(results.Photos); i++ {
		assert.LessOrEqual(t, results.Photos[i-1].Extension, results.Photos[i].Extension)
	}
}

func TestSearchOrderByUnknownColumnWarnsAndFallsBackToCreated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	setupSearchFixture(t, db, ctx)

	bag := NewWarningBag()
	results, err := db.Search(ctx, SearchParams{
		OrderBy:     []OrderTerm{{Column: "nonsense"}},
		Warnings:    bag,
		YieldPhotos: true,
	})
	require.NoError(t, err)
	assert.False(t, bag.Empty())
	assert.NotEmpty(t, results.Photos)
}

func TestSearchNoYieldsRaisesWithoutBag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	setupSearchFixture(t, db, ctx)

	_, err := db.Search(ctx, SearchParams{})
	require.Error(t, err)
	assert.True(t, isCatalogCode(err, "NoYields"))
}

func TestSearchNoYieldsCollectedAsWarningDefaultsToPhotos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	setupSearchFixture(t, db, ctx)

	bag := NewWarningBag()
	results, err := db.Search(ctx, SearchParams{Warnings: bag})
	require.NoError(t, err)
	assert.False(t, bag.Empty())
	assert.NotEmpty(t, results.Photos)
}

func TestSearchYieldAlbumsReturnsContainingAlbums(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	require.NoError(t, writeTestFile(path))

	result, err := db.DigestDirectory(ctx, dir, IngestOptions{MakeAlbums: true})
	require.NoError(t, err)
	require.Len(t, result.Albums, 1)

	results, err := db.Search(ctx, SearchParams{YieldAlbums: true})
	require.NoError(t, err)
	assert.Nil(t, results.Photos)
	require.Len(t, results.Albums, 1)
	assert.Equal(t, result.Albums[0].ID, results.Albums[0].ID)
}

func photoIDSet(photos []*Photo) map[int64]bool {
	set := make(map[int64]bool, len(photos))
	for _, p := range photos {
		set[p.ID] = true
	}
	return set
}
