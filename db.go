package etiquette

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voussoir/etiquette/mediaprobe"
)

// PhotoDB is the facade over one catalog data directory: the store, its
// transaction manager, the object cache, configuration, and the engines
// built on top of them. Every exported operation hangs off this type,
// mirroring the teacher's *Catalog as the one entry point into lrcat-go.
type PhotoDB struct {
	store  *Store
	txm    *TxnManager
	cache  *ObjectCache
	config *Config
	prober mediaprobe.Prober
	logger zerolog.Logger

	tagExportDirty bool
	flatDescCache  map[int64]map[int64]bool
}

// OpenOptions controls how an existing or fresh data directory is opened.
type OpenOptions struct {
	SkipVersionCheck bool
	Prober           mediaprobe.Prober
}

// Open opens (or initializes) a catalog rooted at dataDir.
func Open(dataDir string, opts *OpenOptions) (*PhotoDB, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	cfg, err := LoadConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := OpenStore(dataDir, &StoreOptions{SkipVersionCheck: opts.SkipVersionCheck})
	if err != nil {
		return nil, err
	}

	prober := opts.Prober
	if prober == nil {
		prober = mediaprobe.NewExifToolProber()
	}

	db := &PhotoDB{
		store:  store,
		txm:    NewTxnManager(store),
		cache:  NewObjectCache(cfg.CacheSize),
		config: cfg,
		prober: prober,
		logger: log.With().Str("component", "photodb").Str("data_dir", dataDir).Logger(),
	}
	db.logger.Info().Msg("catalog opened")
	return db, nil
}

// Close releases the underlying database connection and, if the
// configured prober supports it, its own resources (exiftool keeps a
// long-lived subprocess open).
func (db *PhotoDB) Close() error {
	if closer, ok := db.prober.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	return db.store.Close()
}

type txnCtxKey struct{}

func txnFromContext(ctx context.Context) (*Txn, bool) {
	txn, ok := ctx.Value(txnCtxKey{}).(*Txn)
	return txn, ok
}

func withTxnContext(ctx context.Context, txn *Txn) context.Context {
	return context.WithValue(ctx, txnCtxKey{}, txn)
}

// WithTransaction runs fn inside one catalog transaction. If ctx already
// carries a transaction (because this call is nested inside another
// WithTransaction, directly or through a facade method), fn runs directly
// in it, with no savepoint of its own: an error fn returns is rolled back
// only when the call that opened the transaction sees it.
func (db *PhotoDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		return fn(ctx)
	})
}

// withTxn is the shared entry point every facade method funnels through:
// it reuses an ambient transaction from ctx if present (running fn
// directly in it, with no savepoint), or opens and commits a fresh one
// otherwise. Only the call that opened the transaction commits it and
// clears the object cache.
func (db *PhotoDB) withTxn(ctx context.Context, fn func(ctx context.Context, txn *Txn) error) error {
	if existing, ok := txnFromContext(ctx); ok {
		return fn(ctx, existing)
	}

	txn, err := db.txm.Begin(ctx)
	if err != nil {
		return err
	}
	innerCtx := withTxnContext(ctx, txn)

	if err := fn(innerCtx, txn); err != nil {
		_ = txn.Rollback(ctx)
		return err
	}
	if err := txn.Commit(ctx); err != nil {
		return err
	}
	db.cache.ClearAll()
	db.flatDescCache = nil
	return nil
}

// withSavepoint always opens a new transaction level, even if ctx already
// carries one, so the caller gets a real nested SAVEPOINT (or, if called
// outside any WithTransaction, a fresh outermost BEGIN). Use this where one
// unit of work's failure must not undo siblings already completed within
// the same enclosing transaction; DigestDirectory uses it to isolate each
// file so one bad file rolls back to its own savepoint instead of aborting
// the whole digest.
func (db *PhotoDB) withSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	txn, err := db.txm.Begin(ctx)
	if err != nil {
		return err
	}
	innerCtx := withTxnContext(ctx, txn)
	if err := fn(innerCtx); err != nil {
		_ = txn.Rollback(ctx)
		return err
	}
	return txn.Commit(ctx)
}

// Config exposes the loaded configuration for read-only inspection.
func (db *PhotoDB) Config() *Config {
	return db.config
}
