package etiquette

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User is an authenticated principal that can author tags, albums, photos,
// and bookmarks.
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	DisplayName  *string
	Created      float64
}

// NewUser registers a new account. Password is hashed with bcrypt before
// storage; the caller's byte slice is not retained.
func (db *PhotoDB) NewUser(ctx context.Context, username string, password []byte, displayName string) (*User, error) {
	var user *User
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		normalized, err := normalizeUsername(username, db.config.User.MinUsernameLength, db.config.User.MaxUsernameLength, db.config.User.ValidChars)
		if err != nil {
			return err
		}
		if err := normalizePassword(password, db.config.User.MinPasswordLength); err != nil {
			return err
		}

		var existingID int64
		err = txn.QueryRow(ctx, `SELECT id FROM users WHERE username = ?`, normalized).Scan(&existingID)
		if err == nil {
			return wrapError("UserExists", nil, "username %q is taken", normalized)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		hash, err := hashPassword(password)
		if err != nil {
			return err
		}

		id, err := nextID(ctx, txn, "users")
		if err != nil {
			return err
		}

		var display *string
		if displayName != "" {
			display = &displayName
		}
		now := nowTimestamp()
		_, err = txn.Exec(ctx,
			`INSERT INTO users (id, username, password_hash, display_name, created) VALUES (?, ?, ?, ?, ?)`,
			id, normalized, hash, toNullString(display), now)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		user = &User{ID: id, Username: normalized, PasswordHash: hash, DisplayName: display, Created: now}
		db.cache.Put("user", id, user)
		return nil
	})
	return user, err
}

// GetUser resolves a user by ID or username. Exactly one must be given.
func (db *PhotoDB) GetUser(ctx context.Context, id *int64, username string) (*User, error) {
	if (id == nil) == (username == "") {
		return nil, wrapError("NotExclusive", nil, "exactly one of id or username must be given")
	}
	var user *User
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		var row *sql.Row
		if id != nil {
			if cached, ok := db.cache.Get("user", *id); ok {
				user = cached.(*User)
				return nil
			}
			row = txn.QueryRow(ctx, `SELECT id, username, password_hash, display_name, created FROM users WHERE id = ?`, *id)
		} else {
			row = txn.QueryRow(ctx, `SELECT id, username, password_hash, display_name, created FROM users WHERE username = ?`, username)
		}
		var u User
		var display sql.NullString
		if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &display, &u.Created); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return wrapError("NoSuchUser", err, "no such user")
			}
			return err
		}
		u.DisplayName = nullString(display)
		db.cache.Put("user", u.ID, &u)
		user = &u
		return nil
	})
	return user, err
}

// Login verifies a username/password pair and returns the matching user.
func (db *PhotoDB) Login(ctx context.Context, username string, password []byte) (*User, error) {
	user, err := db.GetUser(ctx, nil, username)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return nil, wrapError("WrongLogin", err, "incorrect username or password")
		}
		return nil, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, wrapError("WrongLogin", nil, "incorrect username or password")
	}
	return user, nil
}
