package etiquette

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store wraps the embedded relational database for one catalog data
// directory. It enforces the pragmas and schema version the rest of the
// catalog assumes, following the teacher's NewCatalog/OpenCatalog split.
type Store struct {
	db      *sql.DB
	dataDir string
	logger  zerolog.Logger
}

// StoreOptions controls how an existing data directory is opened.
type StoreOptions struct {
	// SkipVersionCheck bypasses the DatabaseOutOfDate check, for upgrade
	// tooling that is itself out of this module's scope.
	SkipVersionCheck bool
}

// dbFilename is the SQLite file name within the data directory.
const dbFilename = "phototagger.db"

// OpenStore opens (creating if necessary) the catalog database within
// dataDir, applying pragmas and, on first use, the full schema.
func OpenStore(dataDir string, opts *StoreOptions) (*Store, error) {
	if opts == nil {
		opts = &StoreOptions{}
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFilename)
	firstRun := false
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		firstRun = true
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	// The catalog is single-writer; one physical connection avoids
	// SQLITE_BUSY contention between savepoints issued from this process.
	db.SetMaxOpenConns(1)

	store := &Store{
		db:      db,
		dataDir: dataDir,
		logger:  log.With().Str("component", "store").Logger(),
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if firstRun {
		if err := store.initSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	} else if !opts.SkipVersionCheck {
		if err := store.checkVersion(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return store, nil
}

func (s *Store) initSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schemaSQL {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, DatabaseVersion)); err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", err)
	}

	return tx.Commit()
}

func (s *Store) checkVersion() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != DatabaseVersion {
		return wrapError("DatabaseOutOfDate", nil,
			"database is at version %d, code expects %d", version, DatabaseVersion)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir returns the directory this store was opened against.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ThumbnailDir returns the directory thumbnails are written under.
func (s *Store) ThumbnailDir() string {
	return filepath.Join(s.dataDir, "thumbnails")
}

// conn checks out the store's single physical connection for the
// duration of a transaction stack.
func (s *Store) conn(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}
