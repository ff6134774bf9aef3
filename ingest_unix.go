//go:build unix

package etiquette

import (
	"syscall"
)

// fileID is a file's filesystem identity, used to detect renames during
// ingest independent of path.
type fileID struct {
	dev  uint64
	ino  uint64
	size int64
}

// fileIdentity stats path and extracts (device, inode, size) via the
// platform's raw Stat_t, the same identity triple the teacher's
// isImageExtension/ScanDirectory pairing leaves unaddressed since
// Lightroom's catalog never needed rename detection across house-keeping.
func fileIdentity(path string) (fileID, error) {
	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		return fileID{}, err
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino), size: st.Size}, nil
}
