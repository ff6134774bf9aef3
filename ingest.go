package etiquette

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// IngestOptions controls one DigestDirectory call.
type IngestOptions struct {
	Recurse bool
	// MakeAlbums, when set, creates (or reuses) one album per directory
	// walked and associates it via AddAssociatedDirectory.
	MakeAlbums bool
	AuthorID   *int64
}

// IngestFailure records one file that DigestDirectory could not ingest.
// A file that failed inside its own savepoint had that savepoint rolled
// back; a failure to create the directory's album is recorded the same way
// but ran outside any per-file savepoint.
type IngestFailure struct {
	Path string
	Err  error
}

// IngestResult summarizes what DigestDirectory did.
type IngestResult struct {
	New     []*Photo
	Renamed []*Photo
	Albums  []*Album
	Failed  []IngestFailure
}

// DigestDirectory walks a directory tree, registering every file whose
// extension isImageExtension or isVideoExtension accepts. A file whose size
// equals that of a photo whose recorded file is missing from disk is
// treated as a rename of that photo rather than a new photo (see
// findPhotoByIdentity), generalizing the teacher's ScanDirectory from a
// pure scan into a reconciling ingest.
//
// Per-file ingestion runs in its own savepoint nested inside the digest's
// outer transaction: a file that fails (bad metadata, filesystem error)
// rolls back to that savepoint alone and is recorded in Failed, while
// every other file already processed in the batch stands.
func (db *PhotoDB) DigestDirectory(ctx context.Context, root string, opts IngestOptions) (*IngestResult, error) {
	result := &IngestResult{}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}

	paths, err := walkMediaFiles(absRoot, opts.Recurse)
	if err != nil {
		return nil, err
	}
	sortNatural(paths)

	err = db.WithTransaction(ctx, func(ctx context.Context) error {
		var albumsByDir map[string]*Album
		if opts.MakeAlbums {
			albumsByDir = make(map[string]*Album)
		}

		for _, path := range paths {
			var album *Album
			if opts.MakeAlbums {
				dir := filepath.Dir(path)
				a, ok := albumsByDir[dir]
				if !ok {
					var aerr error
					a, aerr = db.getOrCreateAlbumForDirectory(ctx, dir, opts.AuthorID)
					if aerr != nil {
						result.Failed = append(result.Failed, IngestFailure{Path: path, Err: aerr})
						continue
					}
					albumsByDir[dir] = a
					result.Albums = append(result.Albums, a)
				}
				album = a
			}

			var photo *Photo
			var renamed bool
			fileErr := db.withSavepoint(ctx, func(ctx context.Context) error {
				var ferr error
				photo, renamed, ferr = db.createOrFetchPhoto(ctx, path, opts.AuthorID)
				if ferr != nil {
					return ferr
				}
				if album != nil {
					return db.AddPhotoToAlbum(ctx, album.ID, photo.ID)
				}
				return nil
			})
			if fileErr != nil {
				result.Failed = append(result.Failed, IngestFailure{Path: path, Err: fmt.Errorf("failed to ingest %q: %w", path, fileErr)})
				continue
			}
			if renamed {
				result.Renamed = append(result.Renamed, photo)
			} else {
				result.New = append(result.New, photo)
			}
		}
		return nil
	})
	return result, err
}

// createOrFetchPhoto registers path as a photo. If a photo already exists
// at that exact filepath, it is returned unchanged. Otherwise, if
// findPhotoByIdentity finds a photo whose old filepath no longer exists on
// disk and whose recorded size equals this file's, that photo's record is
// re-pointed at path (a rename/move) instead of creating a duplicate row.
func (db *PhotoDB) createOrFetchPhoto(ctx context.Context, path string, authorID *int64) (photo *Photo, renamed bool, err error) {
	var existingID int64
	err = db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		return txn.QueryRow(ctx, `SELECT id FROM photos WHERE filepath = ?`, path).Scan(&existingID)
	})
	if err == nil {
		existing, getErr := db.GetPhoto(ctx, existingID)
		return existing, false, getErr
	}

	identity, identErr := fileIdentity(path)
	if identErr == nil {
		if match, findErr := db.findPhotoByIdentity(ctx, identity); findErr == nil && match != nil {
			// The file is already at path on disk, so only the record moves.
			err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
				_, err := txn.Exec(ctx, `UPDATE photos SET filepath = ?, basename = ? WHERE id = ?`, path, filepath.Base(path), match.ID)
				return err
			})
			if err != nil {
				return nil, false, err
			}
			db.cache.Evict("photo", match.ID)
			updated, err := db.GetPhoto(ctx, match.ID)
			return updated, true, err
		}
	}

	created, err := db.NewPhoto(ctx, path, authorID)
	return created, false, err
}

// findPhotoByIdentity looks for a photo whose old filepath is now missing
// from disk and whose last recorded size equals identity.size, returning
// the first such photo. Only the size is compared: device and inode
// numbers are not stored for photos, so they are not matched. A zero inode
// (no identity available on this platform, see
// ingest_unix.go/ingest_other.go) never matches.
func (db *PhotoDB) findPhotoByIdentity(ctx context.Context, identity fileID) (*Photo, error) {
	if identity.ino == 0 {
		return nil, nil
	}
	rows, err := db.queryMissingPhotos(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		if p.Bytes == nil || *p.Bytes != identity.size {
			continue
		}
		other, err := fileIdentity(p.Filepath)
		if err == nil && other.ino != 0 {
			// The old file still exists; this is a distinct file,
			// not a rename of p.
			continue
		}
		return p, nil
	}
	return nil, nil
}

func (db *PhotoDB) queryMissingPhotos(ctx context.Context) ([]*Photo, error) {
	var photos []*Photo
	err := db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		rows, err := txn.Query(ctx, `SELECT id FROM photos`)
		if err != nil {
			return err
		}
		defer rows.Close()
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for _, id := range ids {
			p, err := db.getPhotoTxn(ctx, txn, id)
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(p.Filepath); statErr != nil {
				photos = append(photos, p)
			}
		}
		return nil
	})
	return photos, err
}

func (db *PhotoDB) getOrCreateAlbumForDirectory(ctx context.Context, dir string, authorID *int64) (*Album, error) {
	album, err := db.AlbumByDirectory(ctx, dir)
	if err == nil {
		return album, nil
	}
	album, err = db.NewAlbum(ctx, filepath.Base(dir), "", authorID)
	if err != nil {
		return nil, err
	}
	if err := db.AddAssociatedDirectory(ctx, album.ID, dir); err != nil {
		return nil, err
	}
	return album, nil
}

// walkMediaFiles lists every image/media file under root.
func walkMediaFiles(root string, recurse bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recurse && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if isImageExtension(ext) || isVideoExtension(ext) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

var videoExtensions = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true, "webm": true,
}

func isVideoExtension(ext string) bool {
	return videoExtensions[ext]
}

// sortNatural sorts paths the way a human expects, treating runs of
// digits as numbers rather than comparing them character by character
// ("img2" before "img10").
func sortNatural(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return naturalLess(paths[i], paths[j])
	})
}

func naturalLess(a, b string) bool {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ac, bc := a[ai], b[bi]
		if isDigit(ac) && isDigit(bc) {
			aStart, bStart := ai, bi
			for ai < len(a) && isDigit(a[ai]) {
				ai++
			}
			for bi < len(b) && isDigit(b[bi]) {
				bi++
			}
			an, _ := strconv.Atoi(a[aStart:ai])
			bn, _ := strconv.Atoi(b[bStart:bi])
			if an != bn {
				return an < bn
			}
			continue
		}
		if ac != bc {
			return ac < bc
		}
		ai++
		bi++
	}
	return len(a)-ai < len(b)-bi
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
