package etiquette

// DatabaseVersion is the schema version stamped into PRAGMA user_version.
// Bump this whenever schemaSQL changes in a way that is not backward
// compatible; OpenStore refuses to operate against a mismatched file
// unless the caller passes SkipVersionCheck.
const DatabaseVersion = 1

// schemaSQL is executed in order against a freshly created database file.
var schemaSQL = []string{
	`CREATE TABLE id_numbers (
		tab TEXT PRIMARY KEY,
		last_id INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		username TEXT UNIQUE NOT NULL COLLATE NOCASE,
		password_hash BLOB NOT NULL,
		display_name TEXT,
		created REAL NOT NULL
	)`,

	`CREATE TABLE tags (
		id INTEGER PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		description TEXT,
		created REAL NOT NULL,
		author_id INTEGER REFERENCES users(id)
	)`,

	`CREATE TABLE tag_synonyms (
		name TEXT PRIMARY KEY,
		mastername TEXT NOT NULL REFERENCES tags(name)
	)`,

	`CREATE TABLE tag_group_rel (
		parentid INTEGER NOT NULL REFERENCES tags(id),
		memberid INTEGER NOT NULL UNIQUE REFERENCES tags(id)
	)`,

	`CREATE TABLE albums (
		id INTEGER PRIMARY KEY,
		title TEXT,
		description TEXT,
		created REAL NOT NULL,
		thumbnail_photo INTEGER,
		author_id INTEGER REFERENCES users(id)
	)`,

	`CREATE TABLE album_associated_directories (
		albumid INTEGER NOT NULL REFERENCES albums(id),
		directory TEXT NOT NULL
	)`,

	`CREATE TABLE album_group_rel (
		parentid INTEGER NOT NULL REFERENCES albums(id),
		memberid INTEGER NOT NULL UNIQUE REFERENCES albums(id)
	)`,

	`CREATE TABLE photos (
		id INTEGER PRIMARY KEY,
		filepath TEXT UNIQUE NOT NULL,
		basename TEXT NOT NULL,
		override_filename TEXT,
		extension TEXT NOT NULL DEFAULT '',
		mtime REAL,
		sha256 TEXT,
		width INTEGER,
		height INTEGER,
		area INTEGER,
		aspectratio REAL,
		duration REAL,
		bytes INTEGER,
		bitrate REAL,
		created REAL NOT NULL,
		thumbnail_relpath TEXT,
		tagged_at REAL,
		author_id INTEGER REFERENCES users(id),
		searchhidden INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE album_photo_rel (
		albumid INTEGER NOT NULL REFERENCES albums(id),
		photoid INTEGER NOT NULL REFERENCES photos(id),
		UNIQUE(albumid, photoid)
	)`,

	`CREATE TABLE photo_tag_rel (
		photoid INTEGER NOT NULL REFERENCES photos(id),
		tagid INTEGER NOT NULL REFERENCES tags(id),
		UNIQUE(photoid, tagid)
	)`,

	`CREATE INDEX index_phototagrel_photoid_tagid ON photo_tag_rel(photoid, tagid)`,

	`CREATE TABLE bookmarks (
		id INTEGER PRIMARY KEY,
		title TEXT,
		url TEXT NOT NULL,
		created REAL NOT NULL,
		author_id INTEGER REFERENCES users(id)
	)`,
}
