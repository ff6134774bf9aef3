package etiquette

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTagNormalizesName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tag, err := db.NewTag(ctx, "Cats And Dogs", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "cats_and_dogs", tag.Name)
}

func TestNewTagDuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.NewTag(ctx, "cat", "", nil)
	require.NoError(t, err)

	_, err = db.NewTag(ctx, "cat", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTagExists))
}

func TestGetTagRequiresExactlyOneSelector(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	one := int64(1)

	_, err := db.GetTag(ctx, &one, "cat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotExclusive))

	_, err = db.GetTag(ctx, nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotExclusive))
}

func TestTagSynonymResolution(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	master, err := db.NewTag(ctx, "animal", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddTagSynonym(ctx, master.ID, "critter"))

	resolved, err := db.GetTag(ctx, nil, "critter")
	require.NoError(t, err)
	assert.Equal(t, master.ID, resolved.ID)
}

func TestFlatDescendantsHierarchy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	animal, err := db.NewTag(ctx, "animal", "", nil)
	require.NoError(t, err)
	mammal, err := db.NewTag(ctx, "mammal", "", nil)
	require.NoError(t, err)
	cat, err := db.NewTag(ctx, "cat", "", nil)
	require.NoError(t, err)

	require.NoError(t, db.AddTagChild(ctx, animal.ID, mammal.ID))
	require.NoError(t, db.AddTagChild(ctx, mammal.ID, cat.ID))

	descendants, err := db.FlatDescendants(ctx, animal.ID)
	require.NoError(t, err)
	assert.True(t, descendants[mammal.ID])
	assert.True(t, descendants[cat.ID])
}

func TestAddTagChildRejectsCycles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	animal, err := db.NewTag(ctx, "animal", "", nil)
	require.NoError(t, err)
	mammal, err := db.NewTag(ctx, "mammal", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddTagChild(ctx, animal.ID, mammal.ID))

	err = db.AddTagChild(ctx, mammal.ID, animal.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRecursiveGrouping))
}

func TestConvertTagToSynonymMigratesPhotoTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	source, err := db.NewTag(ctx, "kitty", "", nil)
	require.NoError(t, err)
	master, err := db.NewTag(ctx, "cat", "", nil)
	require.NoError(t, err)

	f := t.TempDir() + "/photo.jpg"
	require.NoError(t, writeTestFile(f))
	photo, err := db.NewPhoto(ctx, f, nil)
	require.NoError(t, err)

	require.NoError(t, db.AddTagToPhoto(ctx, photo.ID, source.ID))
	require.NoError(t, db.ConvertTagToSynonym(ctx, source.ID, master.ID))

	has, err := db.PhotoHasTag(ctx, photo.ID, master.ID)
	require.NoError(t, err)
	assert.True(t, has)

	resolved, err := db.GetTag(ctx, nil, "kitty")
	require.NoError(t, err)
	assert.Equal(t, master.ID, resolved.ID)
}

func TestDeleteTagRemovesAssociations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tag, err := db.NewTag(ctx, "temp", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.DeleteTag(ctx, tag.ID, false))

	_, err = db.GetTag(ctx, &tag.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchTag))
}

func TestAddTagChildReparentIsNoOpAndRejectsMove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := db.NewTag(ctx, "a", "", nil)
	require.NoError(t, err)
	b, err := db.NewTag(ctx, "b", "", nil)
	require.NoError(t, err)
	x, err := db.NewTag(ctx, "x", "", nil)
	require.NoError(t, err)

	require.NoError(t, db.AddTagChild(ctx, a.ID, x.ID))

	// Re-adding under the same parent is a no-op.
	require.NoError(t, db.AddTagChild(ctx, a.ID, x.ID))

	// Adding under a different parent without detaching first fails.
	err = db.AddTagChild(ctx, b.ID, x.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGroupExists))
}

func TestDeleteTagLiftsChildrenToGrandparent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	animal, err := db.NewTag(ctx, "animal", "", nil)
	require.NoError(t, err)
	mammal, err := db.NewTag(ctx, "mammal", "", nil)
	require.NoError(t, err)
	cat, err := db.NewTag(ctx, "cat", "", nil)
	require.NoError(t, err)

	require.NoError(t, db.AddTagChild(ctx, animal.ID, mammal.ID))
	require.NoError(t, db.AddTagChild(ctx, mammal.ID, cat.ID))

	require.NoError(t, db.DeleteTag(ctx, mammal.ID, false))

	descendants, err := db.FlatDescendants(ctx, animal.ID)
	require.NoError(t, err)
	assert.True(t, descendants[cat.ID])
}

func TestDeleteTagOrphansChildrenWhenRoot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	root, err := db.NewTag(ctx, "root", "", nil)
	require.NoError(t, err)
	child, err := db.NewTag(ctx, "child", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddTagChild(ctx, root.ID, child.ID))

	require.NoError(t, db.DeleteTag(ctx, root.ID, false))

	// child should now be parentless (a root itself), not deleted.
	fetched, err := db.GetTag(ctx, &child.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "child", fetched.Name)

	descendants, err := db.FlatDescendants(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, descendants)
}

func TestDeleteTagWithDeleteChildrenRemovesSubtree(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	animal, err := db.NewTag(ctx, "animal", "", nil)
	require.NoError(t, err)
	mammal, err := db.NewTag(ctx, "mammal", "", nil)
	require.NoError(t, err)
	require.NoError(t, db.AddTagChild(ctx, animal.ID, mammal.ID))

	require.NoError(t, db.DeleteTag(ctx, animal.ID, true))

	_, err = db.GetTag(ctx, &mammal.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchTag))
}
