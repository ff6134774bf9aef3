package etiquette

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tag is one node in the hierarchical tag taxonomy.
type Tag struct {
	ID          int64
	Name        string
	Description *string
	Created     float64
	AuthorID    *int64
}

// NewTag creates a tag named name (normalized per config), optionally
// authored by authorID. Mirrors the teacher's AddKeyword/GetOrCreateKeyword
// insert-then-fetch shape in keyword.go.
func (db *PhotoDB) NewTag(ctx context.Context, name string, description string, authorID *int64) (*Tag, error) {
	var tag *Tag
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		normalized, err := normalizeTagName(name, db.config.Tag.MinLength, db.config.Tag.MaxLength, db.config.Tag.ValidChars)
		if err != nil {
			return err
		}

		if _, err := db.getTagByNameTxn(ctx, txn, normalized); err == nil {
			return wrapError("TagExists", nil, "tag %q already exists", normalized)
		} else if !errors.Is(err, ErrNoSuchTag) {
			return err
		}

		id, err := nextID(ctx, txn, "tags")
		if err != nil {
			return err
		}

		now := nowTimestamp()
		var desc *string
		if description != "" {
			desc = &description
		}
		_, err = txn.Exec(ctx,
			`INSERT INTO tags (id, name, description, created, author_id) VALUES (?, ?, ?, ?, ?)`,
			id, normalized, toNullString(desc), now, toNullInt64(authorID))
		if err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}

		tag = &Tag{ID: id, Name: normalized, Description: desc, Created: now, AuthorID: authorID}
		db.cache.Put("tag", id, tag)
		db.cache.Clear("tagexport")
		return nil
	})
	return tag, err
}

// GetTag resolves a tag by ID, name, or synonym name. Exactly one of id/name
// must be given.
func (db *PhotoDB) GetTag(ctx context.Context, id *int64, name string) (*Tag, error) {
	if (id == nil) == (name == "") {
		return nil, wrapError("NotExclusive", nil, "exactly one of id or name must be given")
	}

	var tag *Tag
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		var err error
		if id != nil {
			tag, err = db.getTagByIDTxn(ctx, txn, *id)
		} else {
			tag, err = db.getTagByNameTxn(ctx, txn, name)
		}
		return err
	})
	return tag, err
}

func (db *PhotoDB) getTagByIDTxn(ctx context.Context, txn *Txn, id int64) (*Tag, error) {
	if cached, ok := db.cache.Get("tag", id); ok {
		return cached.(*Tag), nil
	}
	row := txn.QueryRow(ctx, `SELECT id, name, description, created, author_id FROM tags WHERE id = ?`, id)
	tag, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wrapError("NoSuchTag", err, "no tag with id %d", id)
		}
		return nil, err
	}
	db.cache.Put("tag", tag.ID, tag)
	return tag, nil
}

func (db *PhotoDB) getTagByNameTxn(ctx context.Context, txn *Txn, name string) (*Tag, error) {
	normalized, err := normalizeTagName(name, 0, 1<<30, db.config.Tag.ValidChars)
	if err != nil {
		return nil, err
	}

	var master string
	err = txn.QueryRow(ctx, `SELECT mastername FROM tag_synonyms WHERE name = ?`, normalized).Scan(&master)
	switch {
	case err == nil:
		normalized = master
	case errors.Is(err, sql.ErrNoRows):
		// not a synonym, try as a primary name directly
	default:
		return nil, err
	}

	row := txn.QueryRow(ctx, `SELECT id, name, description, created, author_id FROM tags WHERE name = ?`, normalized)
	tag, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wrapError("NoSuchTag", err, "no tag named %q", normalized)
		}
		return nil, err
	}
	db.cache.Put("tag", tag.ID, tag)
	return tag, nil
}

func scanTag(row *sql.Row) (*Tag, error) {
	var tag Tag
	var description sql.NullString
	var authorID sql.NullInt64
	if err := row.Scan(&tag.ID, &tag.Name, &description, &tag.Created, &authorID); err != nil {
		return nil, err
	}
	tag.Description = nullString(description)
	tag.AuthorID = nullInt64(authorID)
	return &tag, nil
}

// ListTags returns every tag, ordered by name.
func (db *PhotoDB) ListTags(ctx context.Context) ([]*Tag, error) {
	var tags []*Tag
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		rows, err := txn.Query(ctx, `SELECT id, name, description, created, author_id FROM tags ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var tag Tag
			var description sql.NullString
			var authorID sql.NullInt64
			if err := rows.Scan(&tag.ID, &tag.Name, &description, &tag.Created, &authorID); err != nil {
				return err
			}
			tag.Description = nullString(description)
			tag.AuthorID = nullInt64(authorID)
			tags = append(tags, &tag)
		}
		return rows.Err()
	})
	return tags, err
}

// AddTagChild makes child a descendant of parent in the tag group hierarchy.
// A tag can have at most one parent (tag_group_rel.memberid is UNIQUE); this
// rejects grouping a tag under its own descendant, since that would make
// flat-descendants cyclic.
func (db *PhotoDB) AddTagChild(ctx context.Context, parentID, childID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if parentID == childID {
			return wrapError("RecursiveGrouping", nil, "a tag cannot be its own parent")
		}
		if _, err := db.getTagByIDTxn(ctx, txn, parentID); err != nil {
			return err
		}
		if _, err := db.getTagByIDTxn(ctx, txn, childID); err != nil {
			return err
		}

		descendants, err := db.flatDescendantsTxn(ctx, txn, childID)
		if err != nil {
			return err
		}
		if descendants[parentID] {
			return wrapError("RecursiveGrouping", nil, "tag %d is already a descendant of %d", parentID, childID)
		}

		var currentParent int64
		err = txn.QueryRow(ctx, `SELECT parentid FROM tag_group_rel WHERE memberid = ?`, childID).Scan(&currentParent)
		if err == nil {
			if currentParent == parentID {
				return nil
			}
			return wrapError("GroupExists", nil, "tag %d already has a parent; remove it before regrouping", childID)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err = txn.Exec(ctx, `INSERT INTO tag_group_rel (parentid, memberid) VALUES (?, ?)`, parentID, childID)
		if err != nil {
			return fmt.Errorf("failed to group tags: %w", err)
		}
		db.cache.Clear("tagexport")
		return nil
	})
}

// RemoveTagChild detaches childID from its parent, if any.
func (db *PhotoDB) RemoveTagChild(ctx context.Context, childID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		_, err := txn.Exec(ctx, `DELETE FROM tag_group_rel WHERE memberid = ?`, childID)
		if err != nil {
			return err
		}
		db.cache.Clear("tagexport")
		return nil
	})
}

// AddTagSynonym makes name resolve to master via GetTag/tag expressions.
func (db *PhotoDB) AddTagSynonym(ctx context.Context, masterID int64, name string) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		master, err := db.getTagByIDTxn(ctx, txn, masterID)
		if err != nil {
			return err
		}
		normalized, err := normalizeTagName(name, db.config.Tag.MinLength, db.config.Tag.MaxLength, db.config.Tag.ValidChars)
		if err != nil {
			return err
		}
		if normalized == master.Name {
			return wrapError("CantSynonymSelf", nil, "a tag cannot be a synonym of itself")
		}
		if _, err := db.getTagByNameTxn(ctx, txn, normalized); err == nil {
			return wrapError("TagExists", nil, "%q already names a tag or synonym", normalized)
		} else if !errors.Is(err, ErrNoSuchTag) {
			return err
		}
		_, err = txn.Exec(ctx, `INSERT INTO tag_synonyms (name, mastername) VALUES (?, ?)`, normalized, master.Name)
		if err != nil {
			return fmt.Errorf("failed to insert synonym: %w", err)
		}
		db.cache.Clear("tagexport")
		return nil
	})
}

// RemoveTagSynonym deletes a synonym mapping, leaving the master tag intact.
func (db *PhotoDB) RemoveTagSynonym(ctx context.Context, name string) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		normalized, err := normalizeTagName(name, 0, 1<<30, db.config.Tag.ValidChars)
		if err != nil {
			return err
		}
		res, err := txn.Exec(ctx, `DELETE FROM tag_synonyms WHERE name = ?`, normalized)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return wrapError("NoSuchSynonym", nil, "no synonym named %q", normalized)
		}
		db.cache.Clear("tagexport")
		return nil
	})
}

// ConvertTagToSynonym demotes sourceID to a synonym of masterID: every photo
// carrying source gains master instead (deduplicated via INSERT OR IGNORE),
// source's own synonyms are repointed, and the source tag row is deleted.
func (db *PhotoDB) ConvertTagToSynonym(ctx context.Context, sourceID, masterID int64) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		if sourceID == masterID {
			return wrapError("CantSynonymSelf", nil, "a tag cannot be a synonym of itself")
		}
		source, err := db.getTagByIDTxn(ctx, txn, sourceID)
		if err != nil {
			return err
		}
		master, err := db.getTagByIDTxn(ctx, txn, masterID)
		if err != nil {
			return err
		}

		_, err = txn.Exec(ctx,
			`INSERT OR IGNORE INTO photo_tag_rel (photoid, tagid) SELECT photoid, ? FROM photo_tag_rel WHERE tagid = ?`,
			master.ID, source.ID)
		if err != nil {
			return fmt.Errorf("failed to migrate photo tags: %w", err)
		}
		if _, err := txn.Exec(ctx, `DELETE FROM photo_tag_rel WHERE tagid = ?`, source.ID); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `UPDATE tag_synonyms SET mastername = ? WHERE mastername = ?`, master.Name, source.Name); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM tag_group_rel WHERE parentid = ? OR memberid = ?`, source.ID, source.ID); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM tags WHERE id = ?`, source.ID); err != nil {
			return err
		}
		_, err = txn.Exec(ctx, `INSERT INTO tag_synonyms (name, mastername) VALUES (?, ?)`, source.Name, master.Name)
		if err != nil {
			return fmt.Errorf("failed to record source name as synonym: %w", err)
		}

		db.cache.Evict("tag", source.ID)
		db.cache.Clear("tagexport")
		return nil
	})
}

// RenameTag changes a tag's primary name. The old name becomes a synonym
// unless keepOldSynonym is false.
func (db *PhotoDB) RenameTag(ctx context.Context, id int64, newName string, keepOldSynonym bool) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		tag, err := db.getTagByIDTxn(ctx, txn, id)
		if err != nil {
			return err
		}
		normalized, err := normalizeTagName(newName, db.config.Tag.MinLength, db.config.Tag.MaxLength, db.config.Tag.ValidChars)
		if err != nil {
			return err
		}
		if normalized == tag.Name {
			return nil
		}
		if _, err := db.getTagByNameTxn(ctx, txn, normalized); err == nil {
			return wrapError("TagExists", nil, "%q already names a tag or synonym", normalized)
		} else if !errors.Is(err, ErrNoSuchTag) {
			return err
		}

		oldName := tag.Name
		if _, err := txn.Exec(ctx, `UPDATE tags SET name = ? WHERE id = ?`, normalized, id); err != nil {
			return fmt.Errorf("failed to rename tag: %w", err)
		}
		if _, err := txn.Exec(ctx, `UPDATE tag_synonyms SET mastername = ? WHERE mastername = ?`, normalized, oldName); err != nil {
			return err
		}
		if keepOldSynonym {
			if _, err := txn.Exec(ctx, `INSERT OR IGNORE INTO tag_synonyms (name, mastername) VALUES (?, ?)`, oldName, normalized); err != nil {
				return err
			}
		}

		tag.Name = normalized
		db.cache.Put("tag", id, tag)
		db.cache.Clear("tagexport")
		return nil
	})
}

// DeleteTag removes a tag, its synonyms, its group membership, and its
// photo associations. If deleteChildren is false (the common case), child
// tags are lifted: they're reparented to this tag's own parent, or become
// roots if this tag had none. If deleteChildren is true, the whole subtree
// is deleted recursively.
func (db *PhotoDB) DeleteTag(ctx context.Context, id int64, deleteChildren bool) error {
	return db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		tag, err := db.getTagByIDTxn(ctx, txn, id)
		if err != nil {
			return err
		}

		if deleteChildren {
			rows, err := txn.Query(ctx, `SELECT memberid FROM tag_group_rel WHERE parentid = ?`, id)
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
				if err := db.DeleteTag(ctx, childID, true); err != nil {
					return err
				}
			}
		} else {
			var parentID int64
			err := txn.QueryRow(ctx, `SELECT parentid FROM tag_group_rel WHERE memberid = ?`, id).Scan(&parentID)
			switch {
			case err == nil:
				if _, err := txn.Exec(ctx, `UPDATE tag_group_rel SET parentid = ? WHERE parentid = ?`, parentID, id); err != nil {
					return err
				}
			case errors.Is(err, sql.ErrNoRows):
				if _, err := txn.Exec(ctx, `DELETE FROM tag_group_rel WHERE parentid = ?`, id); err != nil {
					return err
				}
			default:
				return err
			}
		}

		if _, err := txn.Exec(ctx, `DELETE FROM tag_group_rel WHERE memberid = ?`, id); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM photo_tag_rel WHERE tagid = ?`, id); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM tag_synonyms WHERE mastername = ?`, tag.Name); err != nil {
			return err
		}
		if _, err := txn.Exec(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
			return err
		}
		db.cache.Evict("tag", id)
		db.cache.Clear("tagexport")
		return nil
	})
}

// FlatDescendants returns the set of tag IDs reachable from id through the
// group hierarchy (not including id itself), memoized in the object
// cache's "tagexport" slot, which every tag, synonym, or group write and
// every outermost commit clears. Computed by walking tag_group_rel
// in Go rather than a recursive SQL CTE, since SQLite's recursive CTE
// support is version-dependent and the hierarchy depth here is small.
func (db *PhotoDB) FlatDescendants(ctx context.Context, id int64) (map[int64]bool, error) {
	var result map[int64]bool
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		var err error
		result, err = db.flatDescendantsTxn(ctx, txn, id)
		return err
	})
	return result, err
}

func (db *PhotoDB) flatDescendantsTxn(ctx context.Context, txn *Txn, id int64) (map[int64]bool, error) {
	if cached, ok := db.cache.Get("tagexport", id); ok {
		return cached.(map[int64]bool), nil
	}

	children := make(map[int64][]int64)
	rows, err := txn.Query(ctx, `SELECT parentid, memberid FROM tag_group_rel`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var parent, member int64
		if err := rows.Scan(&parent, &member); err != nil {
			rows.Close()
			return nil, err
		}
		children[parent] = append(children[parent], member)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

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

	db.cache.Put("tagexport", id, result)
	return result, nil
}
