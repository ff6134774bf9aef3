package etiquette

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedTransactionReleaseLeavesOuterPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var innerTagID int64
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		return db.withSavepoint(ctx, func(ctx context.Context) error {
			tag, err := db.NewTag(ctx, "nested", "", nil)
			if err != nil {
				return err
			}
			innerTagID = tag.ID
			return nil
		})
	})
	require.NoError(t, err)

	tag, err := db.GetTag(ctx, &innerTagID, "")
	require.NoError(t, err)
	assert.Equal(t, "nested", tag.Name)
}

func TestOuterRollbackUndoesNestedWork(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := db.NewTag(ctx, "doomed", "", nil)
		if err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = db.GetTag(ctx, nil, "doomed")
	require.Error(t, err)
	assert.True(t, isCatalogCode(err, "NoSuchTag"))
}

func TestWithSavepointIsolatesFailureFromSiblingWork(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var survivorID int64
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		survivor, err := db.NewTag(ctx, "survivor", "", nil)
		if err != nil {
			return err
		}
		survivorID = survivor.ID

		savepointErr := db.withSavepoint(ctx, func(ctx context.Context) error {
			if _, err := db.NewTag(ctx, "victim", "", nil); err != nil {
				return err
			}
			return assert.AnError
		})
		require.Error(t, savepointErr, "the savepoint's own failure must be reported to the caller")

		_, err = db.NewTag(ctx, "after", "", nil)
		return err
	})
	require.NoError(t, err, "a rolled-back savepoint must not fail the enclosing transaction")

	_, err = db.GetTag(ctx, &survivorID, "")
	require.NoError(t, err, "work committed before the savepoint must survive")

	_, err = db.GetTag(ctx, nil, "after")
	require.NoError(t, err, "work committed after the savepoint must survive")

	// Looked up by name: the rolled-back id is handed out again to "after".
	_, err = db.GetTag(ctx, nil, "victim")
	require.Error(t, err, "the savepoint's own work must have been rolled back via ROLLBACK TO")
	assert.True(t, isCatalogCode(err, "NoSuchTag"))
}

func TestDeferredActionRunsOnlyOnOutermostCommit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ran := 0
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		txn, _ := txnFromContext(ctx)
		txn.Defer(func() error { ran++; return nil }, nil)

		return db.WithTransaction(ctx, func(ctx context.Context) error {
			innerTxn, _ := txnFromContext(ctx)
			innerTxn.Defer(func() error { ran++; return nil }, nil)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
}
