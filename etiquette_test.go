package etiquette

import (
	"os"
	"testing"

	"github.com/voussoir/etiquette/mediaprobe"
)

// writeTestFile creates a small file with arbitrary content at path.
func writeTestFile(path string) error {
	return os.WriteFile(path, []byte("test content"), 0o644)
}

// stubProber satisfies mediaprobe.Prober without shelling out, so unit
// tests don't depend on exiftool being installed in the environment that
// runs them.
type stubProber struct{}

func (stubProber) Probe(path string) (mediaprobe.Info, error) {
	return mediaprobe.Info{}, nil
}

func (stubProber) Thumbnail(path string, maxWidth, maxHeight int) ([]byte, error) {
	return nil, mediaprobe.ErrUnsupportedMedia
}

// newTestDB opens a fresh catalog in a temp directory with a stub prober.
func newTestDB(t *testing.T) *PhotoDB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir, &OpenOptions{Prober: stubProber{}})
	if err != nil {
		t.Fatalf("failed to open test catalog: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
