package etiquette

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Bookmark is a saved URL, independent of the photo/tag/album graph.
type Bookmark struct {
	ID       int64
	Title    string
	URL      string
	Created  float64
	AuthorID *int64
}

// NewBookmark creates a bookmark.
func (db *PhotoDB) NewBookmark(ctx context.Context, title, url string, authorID *int64) (*Bookmark, error) {
	var bookmark *Bookmark
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if url == "" {
			return wrapError("NoYields", nil, "a bookmark requires a url")
		}
		id, err := nextID(ctx, txn, "bookmarks")
		if err != nil {
			return err
		}
		now := nowTimestamp()
		_, err = txn.Exec(ctx, `INSERT INTO bookmarks (id, title, url, created, author_id) VALUES (?, ?, ?, ?, ?)`,
			id, title, url, now, toNullInt64(authorID))
		if err != nil {
			return fmt.Errorf("failed to insert bookmark: %w", err)
		}
		bookmark = &Bookmark{ID: id, Title: title, URL: url, Created: now, AuthorID: authorID}
		db.cache.Put("bookmark", id, bookmark)
		return nil
	})
	return bookmark, err
}

// GetBookmark resolves a bookmark by ID.
func (db *PhotoDB) GetBookmark(ctx context.Context, id int64) (*Bookmark, error) {
	var bookmark *Bookmark
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if cached, ok := db.cache.Get("bookmark", id); ok {
			bookmark = cached.(*Bookmark)
			return nil
		}
		row := txn.QueryRow(ctx, `SELECT id, title, url, created, author_id FROM bookmarks WHERE id = ?`, id)
		var b Bookmark
		var authorID sql.NullInt64
		if err := row.Scan(&b.ID, &b.Title, &b.URL, &b.Created, &authorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return wrapError("NoSuchBookmark", err, "no bookmark with id %d", id)
			}
			return err
		}
		b.AuthorID = nullInt64(authorID)
		db.cache.Put("bookmark", id, &b)
		bookmark = &b
		return nil
	})
	return bookmark, err
}

// EditBookmark updates title/url in place, leaving nil fields unchanged.
func (db *PhotoDB) EditBookmark(ctx context.Context, id int64, title, url *string) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		bookmark, err := db.GetBookmark(ctx, id)
		if err != nil {
			return err
		}
		if title != nil {
			bookmark.Title = *title
		}
		if url != nil {
			bookmark.URL = *url
		}
		_, err = txn.Exec(ctx, `UPDATE bookmarks SET title = ?, url = ? WHERE id = ?`, bookmark.Title, bookmark.URL, id)
		if err != nil {
			return err
		}
		db.cache.Put("bookmark", id, bookmark)
		return nil
	})
}

// DeleteBookmark removes a bookmark.
func (db *PhotoDB) DeleteBookmark(ctx context.Context, id int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		res, err := txn.Exec(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return wrapError("NoSuchBookmark", nil, "no bookmark with id %d", id)
		}
		db.cache.Evict("bookmark", id)
		return nil
	})
}

// ListBookmarks returns every bookmark, ordered by ID.
func (db *PhotoDB) ListBookmarks(ctx context.Context) ([]*Bookmark, error) {
	var bookmarks []*Bookmark
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		rows, err := txn.Query(ctx, `SELECT id, title, url, created, author_id FROM bookmarks ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b Bookmark
			var authorID sql.NullInt64
			if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.Created, &authorID); err != nil {
				return err
			}
			b.AuthorID = nullInt64(authorID)
			bookmarks = append(bookmarks, &b)
		}
		return rows.Err()
	})
	return bookmarks, err
}
