package etiquette

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Album is a named, orderable grouping of photos that can itself nest
// inside other albums, mirroring the teacher's Collection but with a
// tree structure instead of a flat list.
type Album struct {
	ID             int64
	Title          string
	Description    string
	Created        float64
	ThumbnailPhoto *int64
	AuthorID       *int64
}

// NewAlbum creates an empty album.
func (db *PhotoDB) NewAlbum(ctx context.Context, title, description string, authorID *int64) (*Album, error) {
	var album *Album
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		id, err := nextID(ctx, txn, "albums")
		if err != nil {
			return err
		}
		now := nowTimestamp()
		_, err = txn.Exec(ctx,
			`INSERT INTO albums (id, title, description, created, thumbnail_photo, author_id) VALUES (?, ?, ?, ?, NULL, ?)`,
			id, title, description, now, toNullInt64(authorID))
		if err != nil {
			return fmt.Errorf("failed to insert album: %w", err)
		}
		album = &Album{ID: id, Title: title, Description: description, Created: now, AuthorID: authorID}
		db.cache.Put("album", id, album)
		return nil
	})
	return album, err
}

// GetAlbum resolves an album by ID.
func (db *PhotoDB) GetAlbum(ctx context.Context, id int64) (*Album, error) {
	var album *Album
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		var err error
		album, err = db.getAlbumTxn(ctx, txn, id)
		return err
	})
	return album, err
}

func (db *PhotoDB) getAlbumTxn(ctx context.Context, txn *Txn, id int64) (*Album, error) {
	if cached, ok := db.cache.Get("album", id); ok {
		return cached.(*Album), nil
	}
	row := txn.QueryRow(ctx,
		`SELECT id, title, description, created, thumbnail_photo, author_id FROM albums WHERE id = ?`, id)
	var album Album
	var description sql.NullString
	var thumb, authorID sql.NullInt64
	err := row.Scan(&album.ID, &album.Title, &description, &album.Created, &thumb, &authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wrapError("NoSuchAlbum", err, "no album with id %d", id)
		}
		return nil, err
	}
	album.Description = description.String
	album.ThumbnailPhoto = nullInt64(thumb)
	album.AuthorID = nullInt64(authorID)
	db.cache.Put("album", id, &album)
	return &album, nil
}

// EditAlbum updates title/description in place. Pass nil to leave a field
// unchanged.
func (db *PhotoDB) EditAlbum(ctx context.Context, id int64, title, description *string) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		album, err := db.getAlbumTxn(ctx, txn, id)
		if err != nil {
			return err
		}
		if title != nil {
			album.Title = *title
		}
		if description != nil {
			album.Description = *description
		}
		_, err = txn.Exec(ctx, `UPDATE albums SET title = ?, description = ? WHERE id = ?`,
			album.Title, album.Description, id)
		if err != nil {
			return err
		}
		db.cache.Put("album", id, album)
		return nil
	})
}

// AddAlbumChild nests child under parent. An album may have at most one
// parent.
func (db *PhotoDB) AddAlbumChild(ctx context.Context, parentID, childID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if parentID == childID {
			return wrapError("RecursiveGrouping", nil, "an album cannot be its own parent")
		}
		if _, err := db.getAlbumTxn(ctx, txn, parentID); err != nil {
			return err
		}
		if _, err := db.getAlbumTxn(ctx, txn, childID); err != nil {
			return err
		}
		descendants, err := db.albumDescendantsTxn(ctx, txn, childID)
		if err != nil {
			return err
		}
		if descendants[parentID] {
			return wrapError("RecursiveGrouping", nil, "album %d is already a descendant of %d", parentID, childID)
		}

		var currentParent int64
		err = txn.QueryRow(ctx, `SELECT parentid FROM album_group_rel WHERE memberid = ?`, childID).Scan(&currentParent)
		if err == nil {
			if currentParent == parentID {
				return nil
			}
			return wrapError("GroupExists", nil, "album %d already has a parent; remove it before regrouping", childID)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err = txn.Exec(ctx, `INSERT INTO album_group_rel (parentid, memberid) VALUES (?, ?)`, parentID, childID)
		return err
	})
}

// RemoveAlbumChild detaches childID from its parent album, if any.
func (db *PhotoDB) RemoveAlbumChild(ctx context.Context, childID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		_, err := txn.Exec(ctx, `DELETE FROM album_group_rel WHERE memberid = ?`, childID)
		return err
	})
}

func (db *PhotoDB) albumDescendantsTxn(ctx context.Context, txn *Txn, id int64) (map[int64]bool, error) {
	children := make(map[int64][]int64)
	rows, err := txn.Query(ctx, `SELECT parentid, memberid FROM album_group_rel`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var parent, member int64
		if err := rows.Scan(&parent, &member); err != nil {
			return nil, err
		}
		children[parent] = append(children[parent], member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[int64]bool)
	var walk func(int64)
	walk = func(node int64) {
		for _, child := range children[node] {
			if result[child] {
				continue
			}
			result[child] = true
			walk(child)
		}
	}
	walk(id)
	return result, nil
}

// AddPhotoToAlbum associates photoID with albumID, deduplicated.
func (db *PhotoDB) AddPhotoToAlbum(ctx context.Context, albumID, photoID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if _, err := db.getAlbumTxn(ctx, txn, albumID); err != nil {
			return err
		}
		if _, err := db.getPhotoTxn(ctx, txn, photoID); err != nil {
			return err
		}
		_, err := txn.Exec(ctx, `INSERT OR IGNORE INTO album_photo_rel (albumid, photoid) VALUES (?, ?)`, albumID, photoID)
		return err
	})
}

// RemovePhotoFromAlbum dissociates photoID from albumID.
func (db *PhotoDB) RemovePhotoFromAlbum(ctx context.Context, albumID, photoID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		_, err := txn.Exec(ctx, `DELETE FROM album_photo_rel WHERE albumid = ? AND photoid = ?`, albumID, photoID)
		return err
	})
}

// AddTagToAllPhotosInAlbum tags every photo currently in albumID (and, if recurse
// is set, every descendant album) with tagID.
func (db *PhotoDB) AddTagToAllPhotosInAlbum(ctx context.Context, albumID, tagID int64, recurse bool) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		albumIDs := []int64{albumID}
		if recurse {
			descendants, err := db.albumDescendantsTxn(ctx, txn, albumID)
			if err != nil {
				return err
			}
			for id := range descendants {
				albumIDs = append(albumIDs, id)
			}
		}
		for _, aid := range albumIDs {
			photoIDs, err := db.albumPhotoIDsTxn(ctx, txn, aid)
			if err != nil {
				return err
			}
			for _, pid := range photoIDs {
				if err := db.addTagToPhotoTxn(ctx, txn, pid, tagID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (db *PhotoDB) albumPhotoIDsTxn(ctx context.Context, txn *Txn, albumID int64) ([]int64, error) {
	rows, err := txn.Query(ctx, `SELECT photoid FROM album_photo_rel WHERE albumid = ?`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WalkAlbumPhotos returns every photo directly or (if recurse) transitively
// contained in albumID, deduplicated by photo ID.
func (db *PhotoDB) WalkAlbumPhotos(ctx context.Context, albumID int64, recurse bool) ([]*Photo, error) {
	var photos []*Photo
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		albumIDs := []int64{albumID}
		if recurse {
			descendants, err := db.albumDescendantsTxn(ctx, txn, albumID)
			if err != nil {
				return err
			}
			for id := range descendants {
				albumIDs = append(albumIDs, id)
			}
		}
		seen := make(map[int64]bool)
		for _, aid := range albumIDs {
			ids, err := db.albumPhotoIDsTxn(ctx, txn, aid)
			if err != nil {
				return err
			}
			for _, pid := range ids {
				if seen[pid] {
					continue
				}
				seen[pid] = true
				photo, err := db.getPhotoTxn(ctx, txn, pid)
				if err != nil {
					return err
				}
				photos = append(photos, photo)
			}
		}
		return nil
	})
	return photos, err
}

// SumAlbumBytesAndPhotos totals the file size and photo count across
// albumID and, if recurse is set, its descendants.
func (db *PhotoDB) SumAlbumBytesAndPhotos(ctx context.Context, albumID int64, recurse bool) (totalBytes int64, totalPhotos int, err error) {
	err = db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		photos, err := db.walkAlbumPhotosTxn(ctx, txn, albumID, recurse)
		if err != nil {
			return err
		}
		totalPhotos = len(photos)
		for _, p := range photos {
			if p.Bytes != nil {
				totalBytes += *p.Bytes
			}
		}
		return nil
	})
	return totalBytes, totalPhotos, err
}

func (db *PhotoDB) walkAlbumPhotosTxn(ctx context.Context, txn *Txn, albumID int64, recurse bool) ([]*Photo, error) {
	albumIDs := []int64{albumID}
	if recurse {
		descendants, err := db.albumDescendantsTxn(ctx, txn, albumID)
		if err != nil {
			return nil, err
		}
		for id := range descendants {
			albumIDs = append(albumIDs, id)
		}
	}
	seen := make(map[int64]bool)
	var photos []*Photo
	for _, aid := range albumIDs {
		ids, err := db.albumPhotoIDsTxn(ctx, txn, aid)
		if err != nil {
			return nil, err
		}
		for _, pid := range ids {
			if seen[pid] {
				continue
			}
			seen[pid] = true
			photo, err := db.getPhotoTxn(ctx, txn, pid)
			if err != nil {
				return nil, err
			}
			photos = append(photos, photo)
		}
	}
	return photos, nil
}

// AddAssociatedDirectory records that albumID corresponds to directory on
// disk, for Ingest to materialize albums from a directory tree.
func (db *PhotoDB) AddAssociatedDirectory(ctx context.Context, albumID int64, directory string) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if _, err := db.getAlbumTxn(ctx, txn, albumID); err != nil {
			return err
		}
		_, err := txn.Exec(ctx,
			`INSERT INTO album_associated_directories (albumid, directory) VALUES (?, ?)`, albumID, directory)
		return err
	})
}

// AlbumByDirectory finds the album associated with an exact directory path,
// if any.
func (db *PhotoDB) AlbumByDirectory(ctx context.Context, directory string) (*Album, error) {
	var album *Album
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		var albumID int64
		err := txn.QueryRow(ctx,
			`SELECT albumid FROM album_associated_directories WHERE directory = ?`, directory).Scan(&albumID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return wrapError("NoSuchAlbum", err, "no album associated with directory %q", directory)
			}
			return err
		}
		album, err = db.getAlbumTxn(ctx, txn, albumID)
		return err
	})
	return album, err
}

// DeleteAlbum removes an album, its photo/group/directory associations.
// Contained photos are never deleted. If deleteChildren is false (the
// common case), child albums are lifted: reparented to this album's own
// parent, or made roots if this album had none. If deleteChildren is
// true, the whole subtree of albums is deleted recursively (still without
// touching their photos).
func (db *PhotoDB) DeleteAlbum(ctx context.Context, id int64, deleteChildren bool) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if _, err := db.getAlbumTxn(ctx, txn, id); err != nil {
			return err
		}

		if deleteChildren {
			rows, err := txn.Query(ctx, `SELECT memberid FROM album_group_rel WHERE parentid = ?`, id)
			if err != nil {
				return err
			}
			var children []int64
			for rows.Next() {
				var childID int64
				if err := rows.Scan(&childID); err != nil {
					rows.Close()
					return err
				}
				children = append(children, childID)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
			for _, childID := range children {
				if err := db.DeleteAlbum(ctx, childID, true); err != nil {
					return err
				}
			}
		} else {
			var parentID int64
			err := txn.QueryRow(ctx, `SELECT parentid FROM album_group_rel WHERE memberid = ?`, id).Scan(&parentID)
			switch {
			case err == nil:
				if _, err := txn.Exec(ctx, `UPDATE album_group_rel SET parentid = ? WHERE parentid = ?`, parentID, id); err != nil {
					return err
				}
			case errors.Is(err, sql.ErrNoRows):
				if _, err := txn.Exec(ctx, `DELETE FROM album_group_rel WHERE parentid = ?`, id); err != nil {
					return err
				}
			default:
				return err
			}
		}

		if _, err := txn.Exec(ctx, `DELETE FROM album_group_rel WHERE memberid = ?`, id); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM album_photo_rel WHERE albumid = ?`, id); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM album_associated_directories WHERE albumid = ?`, id); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM albums WHERE id = ?`, id); err != nil {
			return err
		}
		db.cache.Evict("album", id)
		return nil
	})
}
