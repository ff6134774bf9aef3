package etiquette

import (
	"context"
	"database/sql"
	"errors"
)

// nextID allocates the next monotonic integer ID for tab, within txn.
// Mirrors the teacher's insert-then-fetch-rowid pattern, but against an
// explicit counter table rather than SQLite's own rowid, since photo IDs
// are embedded in thumbnail paths and must remain stable identifiers
// independent of row deletion/vacuum behavior.
func nextID(ctx context.Context, txn *Txn, tab string) (int64, error) {
	var last int64
	err := txn.QueryRow(ctx, `SELECT last_id FROM id_numbers WHERE tab = ?`, tab).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := txn.Exec(ctx, `INSERT INTO id_numbers (tab, last_id) VALUES (?, 1)`, tab); err != nil {
				return 0, err
			}
			return 1, nil
		}
		return 0, err
	}

	next := last + 1
	if _, err := txn.Exec(ctx, `UPDATE id_numbers SET last_id = ? WHERE tab = ?`, next, tab); err != nil {
		return 0, err
	}
	return next, nil
}
