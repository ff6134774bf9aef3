package etiquette

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/voussoir/etiquette/mediaprobe"
)

// Photo is one file in the catalog, identified by its filepath.
type Photo struct {
	ID               int64
	Filepath         string
	Basename         string
	OverrideFilename *string
	Extension        string
	Mtime            *float64
	SHA256           *string
	Width            *int64
	Height           *int64
	Area             *int64
	AspectRatio      *float64
	Duration         *float64
	Bytes            *int64
	Bitrate          *float64
	Created          float64
	ThumbnailRelpath *string
	TaggedAt         *float64
	AuthorID         *int64
	SearchHidden     bool
}

// DisplayName is the override filename if set, else the basename.
func (p *Photo) DisplayName() string {
	if p.OverrideFilename != nil {
		return *p.OverrideFilename
	}
	return p.Basename
}

// NewPhoto registers filepath as a photo, probing it for technical
// metadata immediately. This is the single-file counterpart to Ingest's
// directory walk.
func (db *PhotoDB) NewPhoto(ctx context.Context, path string, authorID *int64) (*Photo, error) {
	var photo *Photo
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}

		var existingID int64
		err = txn.QueryRow(ctx, `SELECT id FROM photos WHERE filepath = ?`, absPath).Scan(&existingID)
		if err == nil {
			return wrapError("PhotoExists", nil, "a photo already exists for %q", absPath)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		id, err := nextID(ctx, txn, "photos")
		if err != nil {
			return err
		}

		photo = &Photo{
			ID:        id,
			Filepath:  absPath,
			Basename:  filepath.Base(absPath),
			Extension: strings.TrimPrefix(strings.ToLower(filepath.Ext(absPath)), "."),
			Created:   nowTimestamp(),
			AuthorID:  authorID,
		}
		db.statFile(photo)
		db.probeFile(photo)

		if err := db.insertPhotoTxn(ctx, txn, photo); err != nil {
			return err
		}
		db.cache.Put("photo", id, photo)
		return nil
	})
	return photo, err
}

func (db *PhotoDB) insertPhotoTxn(ctx context.Context, txn *Txn, p *Photo) error {
	_, err := txn.Exec(ctx,
		`INSERT INTO photos (
			id, filepath, basename, override_filename, extension, mtime, sha256,
			width, height, area, aspectratio, duration, bytes, bitrate,
			created, thumbnail_relpath, tagged_at, author_id, searchhidden
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Filepath, p.Basename, toNullString(p.OverrideFilename), p.Extension,
		toNullFloat64(p.Mtime), toNullString(p.SHA256),
		toNullInt64(p.Width), toNullInt64(p.Height), toNullInt64(p.Area), toNullFloat64(p.AspectRatio),
		toNullFloat64(p.Duration), toNullInt64(p.Bytes), toNullFloat64(p.Bitrate),
		p.Created, toNullString(p.ThumbnailRelpath), toNullFloat64(p.TaggedAt),
		toNullInt64(p.AuthorID), boolToInt(p.SearchHidden))
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// statFile fills in the filesystem-derived fields (mtime, size) from disk,
// leaving them nil if the file cannot be stat'd.
func (db *PhotoDB) statFile(p *Photo) {
	info, err := os.Stat(p.Filepath)
	if err != nil {
		return
	}
	mtime := float64(info.ModTime().UnixNano()) / 1e9
	size := info.Size()
	p.Mtime = &mtime
	p.Bytes = &size
}

// probeFile fills in the media-derived fields via the configured Prober,
// leaving them nil on failure (a missing or corrupt file should not block
// registering the catalog row).
func (db *PhotoDB) probeFile(p *Photo) {
	info, err := db.prober.Probe(p.Filepath)
	if err != nil {
		db.logger.Debug().Err(err).Str("path", p.Filepath).Msg("media probe failed")
		return
	}
	if info.Width > 0 {
		w := int64(info.Width)
		p.Width = &w
	}
	if info.Height > 0 {
		h := int64(info.Height)
		p.Height = &h
	}
	if p.Width != nil && p.Height != nil {
		area := *p.Width * *p.Height
		p.Area = &area
		ratio := float64(*p.Width) / float64(*p.Height)
		p.AspectRatio = &ratio
	}
	if info.Duration > 0 {
		d := info.Duration
		p.Duration = &d
	}
	if info.Bitrate > 0 {
		b := info.Bitrate
		p.Bitrate = &b
	}
}

// ReloadPhotoMetadata re-stats and re-probes a photo's file, updating the
// catalog row in place.
func (db *PhotoDB) ReloadPhotoMetadata(ctx context.Context, id int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		photo, err := db.getPhotoTxn(ctx, txn, id)
		if err != nil {
			return err
		}
		db.statFile(photo)
		db.probeFile(photo)
		if err := db.updatePhotoTxn(ctx, txn, photo); err != nil {
			return err
		}
		db.cache.Put("photo", id, photo)
		return nil
	})
}

func (db *PhotoDB) updatePhotoTxn(ctx context.Context, txn *Txn, p *Photo) error {
	_, err := txn.Exec(ctx,
		`UPDATE photos SET filepath=?, basename=?, override_filename=?, extension=?, mtime=?, sha256=?,
			width=?, height=?, area=?, aspectratio=?, duration=?, bytes=?, bitrate=?,
			thumbnail_relpath=?, tagged_at=?, searchhidden=? WHERE id=?`,
		p.Filepath, p.Basename, toNullString(p.OverrideFilename), p.Extension,
		toNullFloat64(p.Mtime), toNullString(p.SHA256),
		toNullInt64(p.Width), toNullInt64(p.Height), toNullInt64(p.Area), toNullFloat64(p.AspectRatio),
		toNullFloat64(p.Duration), toNullInt64(p.Bytes), toNullFloat64(p.Bitrate),
		toNullString(p.ThumbnailRelpath), toNullFloat64(p.TaggedAt), boolToInt(p.SearchHidden), p.ID)
	return err
}

// GetPhoto resolves a photo by ID.
func (db *PhotoDB) GetPhoto(ctx context.Context, id int64) (*Photo, error) {
	var photo *Photo
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		var err error
		photo, err = db.getPhotoTxn(ctx, txn, id)
		return err
	})
	return photo, err
}

func (db *PhotoDB) getPhotoTxn(ctx context.Context, txn *Txn, id int64) (*Photo, error) {
	if cached, ok := db.cache.Get("photo", id); ok {
		return cached.(*Photo), nil
	}
	row := txn.QueryRow(ctx, `SELECT
		id, filepath, basename, override_filename, extension, mtime, sha256,
		width, height, area, aspectratio, duration, bytes, bitrate,
		created, thumbnail_relpath, tagged_at, author_id, searchhidden
		FROM photos WHERE id = ?`, id)
	photo, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wrapError("NoSuchPhoto", err, "no photo with id %d", id)
		}
		return nil, err
	}
	db.cache.Put("photo", id, photo)
	return photo, nil
}

func scanPhoto(row *sql.Row) (*Photo, error) {
	var p Photo
	var overrideFilename, sha256, thumbRelpath sql.NullString
	var mtime, aspectRatio, duration, bitrate, taggedAt sql.NullFloat64
	var width, height, area, bytes_, authorID sql.NullInt64
	var searchHidden int
	err := row.Scan(&p.ID, &p.Filepath, &p.Basename, &overrideFilename, &p.Extension, &mtime, &sha256,
		&width, &height, &area, &aspectRatio, &duration, &bytes_, &bitrate,
		&p.Created, &thumbRelpath, &taggedAt, &authorID, &searchHidden)
	if err != nil {
		return nil, err
	}
	p.OverrideFilename = nullString(overrideFilename)
	p.SHA256 = nullString(sha256)
	p.ThumbnailRelpath = nullString(thumbRelpath)
	p.Mtime = nullFloat64(mtime)
	p.AspectRatio = nullFloat64(aspectRatio)
	p.Duration = nullFloat64(duration)
	p.Bitrate = nullFloat64(bitrate)
	p.TaggedAt = nullFloat64(taggedAt)
	p.Width = nullInt64(width)
	p.Height = nullInt64(height)
	p.Area = nullInt64(area)
	p.Bytes = nullInt64(bytes_)
	p.AuthorID = nullInt64(authorID)
	p.SearchHidden = searchHidden != 0
	return &p, nil
}

// AddTagToPhoto tags a photo with tagID, applying the hierarchical
// subsumption rule: if the photo already carries an ancestor of tagID,
// the ancestor is removed in favor of the more specific tag, and adding a
// tag the photo already carries directly, or one of whose descendants it
// already carries, is a no-op.
func (db *PhotoDB) AddTagToPhoto(ctx context.Context, photoID, tagID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		return db.addTagToPhotoTxn(ctx, txn, photoID, tagID)
	})
}

func (db *PhotoDB) addTagToPhotoTxn(ctx context.Context, txn *Txn, photoID, tagID int64) error {
	if _, err := db.getPhotoTxn(ctx, txn, photoID); err != nil {
		return err
	}
	if _, err := db.getTagByIDTxn(ctx, txn, tagID); err != nil {
		return err
	}

	existing, err := db.photoTagIDsTxn(ctx, txn, photoID)
	if err != nil {
		return err
	}
	if existing[tagID] {
		return nil
	}

	descendants, err := db.flatDescendantsTxn(ctx, txn, tagID)
	if err != nil {
		return err
	}
	// If the photo already carries a descendant of tagID, tagID itself
	// would be a redundant ancestor; skip adding it.
	for existingID := range existing {
		if descendants[existingID] {
			return nil
		}
	}

	// Remove any ancestor of tagID the photo already carries, since tagID
	// is strictly more specific.
	for existingID := range existing {
		ancestorDescendants, err := db.flatDescendantsTxn(ctx, txn, existingID)
		if err != nil {
			return err
		}
		if ancestorDescendants[tagID] {
			if _, err := txn.Exec(ctx, `DELETE FROM photo_tag_rel WHERE photoid = ? AND tagid = ?`, photoID, existingID); err != nil {
				return err
			}
		}
	}

	if _, err := txn.Exec(ctx, `INSERT OR IGNORE INTO photo_tag_rel (photoid, tagid) VALUES (?, ?)`, photoID, tagID); err != nil {
		return fmt.Errorf("failed to tag photo: %w", err)
	}
	now := nowTimestamp()
	if _, err := txn.Exec(ctx, `UPDATE photos SET tagged_at = ? WHERE id = ?`, now, photoID); err != nil {
		return err
	}
	db.cache.Evict("photo", photoID)
	return nil
}

// RemoveTagFromPhoto removes tagID and every one of its descendant tags
// from photoID's tag set, mirroring the hierarchical walk AddTagToPhoto
// does on the way in: removing "animal" also removes any "animal.mammal"
// or "animal.mammal.cat" the photo happened to carry.
func (db *PhotoDB) RemoveTagFromPhoto(ctx context.Context, photoID, tagID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if _, err := db.getPhotoTxn(ctx, txn, photoID); err != nil {
			return err
		}
		if _, err := db.getTagByIDTxn(ctx, txn, tagID); err != nil {
			return err
		}

		descendants, err := db.flatDescendantsTxn(ctx, txn, tagID)
		if err != nil {
			return err
		}

		if _, err := txn.Exec(ctx, `DELETE FROM photo_tag_rel WHERE photoid = ? AND tagid = ?`, photoID, tagID); err != nil {
			return err
		}
		for descendantID := range descendants {
			if _, err := txn.Exec(ctx, `DELETE FROM photo_tag_rel WHERE photoid = ? AND tagid = ?`, photoID, descendantID); err != nil {
				return err
			}
		}

		now := nowTimestamp()
		if _, err := txn.Exec(ctx, `UPDATE photos SET tagged_at = ? WHERE id = ?`, now, photoID); err != nil {
			return err
		}
		db.cache.Evict("photo", photoID)
		return nil
	})
}

// PhotoHasTag reports whether photoID carries tagID directly.
func (db *PhotoDB) PhotoHasTag(ctx context.Context, photoID, tagID int64) (bool, error) {
	var has bool
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		tags, err := db.photoTagIDsTxn(ctx, txn, photoID)
		if err != nil {
			return err
		}
		has = tags[tagID]
		return nil
	})
	return has, err
}

func (db *PhotoDB) photoTagIDsTxn(ctx context.Context, txn *Txn, photoID int64) (map[int64]bool, error) {
	rows, err := txn.Query(ctx, `SELECT tagid FROM photo_tag_rel WHERE photoid = ?`, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

// PhotoTags returns the tags directly associated with photoID.
func (db *PhotoDB) PhotoTags(ctx context.Context, photoID int64) ([]*Tag, error) {
	var tags []*Tag
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		ids, err := db.photoTagIDsTxn(ctx, txn, photoID)
		if err != nil {
			return err
		}
		for id := range ids {
			tag, err := db.getTagByIDTxn(ctx, txn, id)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return nil
	})
	return tags, err
}

// RenamePhotoFile renames or moves a photo's underlying file. The actual
// os.Rename only happens when the enclosing transaction commits; if it
// rolls back the filesystem is never touched, and if the commit's rename
// fails after other deferred actions already ran, there is nothing left
// to compensate since rename is the terminal step.
func (db *PhotoDB) RenamePhotoFile(ctx context.Context, photoID int64, newPath string) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		photo, err := db.getPhotoTxn(ctx, txn, photoID)
		if err != nil {
			return err
		}
		absNew, err := filepath.Abs(newPath)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		oldPath := photo.Filepath

		if _, err := txn.Exec(ctx, `UPDATE photos SET filepath = ?, basename = ? WHERE id = ?`,
			absNew, filepath.Base(absNew), photoID); err != nil {
			return fmt.Errorf("failed to update photo record: %w", err)
		}

		txn.Defer(
			func() error {
				if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
					return err
				}
				return os.Rename(oldPath, absNew)
			},
			nil,
		)

		photo.Filepath = absNew
		photo.Basename = filepath.Base(absNew)
		db.cache.Put("photo", photoID, photo)
		return nil
	})
}

// DeletePhoto removes the catalog row and its tag/album associations. If
// deleteFile is set, the underlying file (and any generated thumbnail) is
// removed as a deferred commit-time side effect.
func (db *PhotoDB) DeletePhoto(ctx context.Context, photoID int64, deleteFile bool) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		photo, err := db.getPhotoTxn(ctx, txn, photoID)
		if err != nil {
			return err
		}

		if _, err := txn.Exec(ctx, `DELETE FROM photo_tag_rel WHERE photoid = ?`, photoID); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM album_photo_rel WHERE photoid = ?`, photoID); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM photos WHERE id = ?`, photoID); err != nil {
			return err
		}

		if deleteFile {
			thumbPath := ""
			if photo.ThumbnailRelpath != nil {
				thumbPath = filepath.Join(db.store.ThumbnailDir(), *photo.ThumbnailRelpath)
			}
			txn.Defer(func() error {
				_ = os.Remove(photo.Filepath)
				if thumbPath != "" {
					_ = os.Remove(thumbPath)
				}
				return nil
			}, nil)
		}

		db.cache.Evict("photo", photoID)
		return nil
	})
}

// GenerateThumbnail produces and stores a preview image for a photo. Still
// images are decoded and resized in-core via disintegration/imaging;
// anything else is delegated to the configured mediaprobe.Prober, which by
// default cannot produce one (video decoding is out of scope).
func (db *PhotoDB) GenerateThumbnail(ctx context.Context, photoID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		photo, err := db.getPhotoTxn(ctx, txn, photoID)
		if err != nil {
			return err
		}

		width := db.config.ThumbnailWidth
		height := db.config.ThumbnailHeight

		var jpegBytes []byte
		if isImageExtension(photo.Extension) {
			jpegBytes, err = db.renderImageThumbnail(photo.Filepath, width, height)
		} else {
			jpegBytes, err = db.prober.Thumbnail(photo.Filepath, width, height)
		}
		if err != nil {
			if errors.Is(err, mediaprobe.ErrUnsupportedMedia) {
				return wrapError("FeatureDisabled", err, "cannot generate a thumbnail for %q", photo.Filepath)
			}
			return fmt.Errorf("failed to generate thumbnail: %w", err)
		}

		relpath := fmt.Sprintf("%d.jpg", photo.ID)
		fullPath := filepath.Join(db.store.ThumbnailDir(), relpath)

		txn.Defer(func() error {
			if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
				return err
			}
			return os.WriteFile(fullPath, jpegBytes, 0o644)
		}, nil)

		photo.ThumbnailRelpath = &relpath
		if _, err := txn.Exec(ctx, `UPDATE photos SET thumbnail_relpath = ? WHERE id = ?`, relpath, photo.ID); err != nil {
			return err
		}
		db.cache.Put("photo", photo.ID, photo)
		return nil
	})
}

func (db *PhotoDB) renderImageThumbnail(path string, width, height int) ([]byte, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	resized := imaging.Fit(src, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 50}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "tiff": true, "webp": true,
}

func isImageExtension(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}
