//go:build !unix

package etiquette

import "os"

// fileID is a file's filesystem identity. Non-Unix platforms have no
// portable inode equivalent exposed via os.FileInfo, so only size is
// available and rename detection degrades to "never matches".
type fileID struct {
	dev  uint64
	ino  uint64
	size int64
}

func fileIdentity(path string) (fileID, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileID{}, err
	}
	return fileID{size: info.Size()}, nil
}
