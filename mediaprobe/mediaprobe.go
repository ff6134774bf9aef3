// Package mediaprobe extracts technical metadata from media files on disk,
// behind a small interface so PhotoEngine never imports a concrete probing
// library directly. The registration-by-interface shape follows the
// sound.Metadata/sound.Tags split, generalized from one format per
// decoder function to one prober for a whole file.
package mediaprobe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barasher/go-exiftool"
)

// ErrUnsupportedMedia is returned by Thumbnail for media kinds this probe
// cannot produce a preview image for (video decoding is out of scope).
var ErrUnsupportedMedia = errors.New("mediaprobe: unsupported media kind for thumbnailing")

// Info is the technical metadata recovered from one file.
type Info struct {
	Width    int
	Height   int
	Duration float64 // seconds, zero for still images
	Bitrate  float64 // bits per second, zero if not applicable
	Raw      map[string]string
}

// Prober extracts Info from a file path. Thumbnail additionally produces a
// JPEG-encoded preview image for media kinds the in-core imaging path
// cannot handle directly (anything that is not a decodable still image).
type Prober interface {
	Probe(path string) (Info, error)
	Thumbnail(path string, maxWidth, maxHeight int) ([]byte, error)
}

// ExifToolProber shells out to exiftool via barasher/go-exiftool. One
// instance keeps a single long-lived exiftool subprocess open (exiftool's
// own startup cost is the dominant latency for single-file probing).
type ExifToolProber struct {
	et *exiftool.Exiftool
}

// NewExifToolProber starts the backing exiftool subprocess. If exiftool is
// not installed, probing degrades to returning errors rather than
// panicking at call time.
func NewExifToolProber() *ExifToolProber {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return &ExifToolProber{et: nil}
	}
	return &ExifToolProber{et: et}
}

// Close stops the backing exiftool subprocess.
func (p *ExifToolProber) Close() error {
	if p.et == nil {
		return nil
	}
	p.et.Close()
	return nil
}

var ignoredExifKeys = map[string]bool{
	"sourcefile":      true,
	"filename":        true,
	"directory":       true,
	"filepermissions": true,
}

// Probe runs exiftool against path and extracts the fields PhotoEngine
// cares about (pixel dimensions, duration, bitrate), keeping the rest of
// the raw field set available for callers that want it.
func (p *ExifToolProber) Probe(path string) (Info, error) {
	if p.et == nil {
		return Info{}, fmt.Errorf("mediaprobe: exiftool is not available")
	}

	fileInfos := p.et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return Info{}, fmt.Errorf("mediaprobe: exiftool returned no metadata for %s", path)
	}
	fi := fileInfos[0]
	if fi.Err != nil {
		return Info{}, fmt.Errorf("mediaprobe: exiftool failed on %s: %w", path, fi.Err)
	}

	info := Info{Raw: make(map[string]string, len(fi.Fields))}
	for k, v := range fi.Fields {
		if ignoredExifKeys[strings.ToLower(k)] {
			continue
		}
		info.Raw[k] = fmt.Sprintf("%v", v)
	}

	if w, err := fi.GetInt("ImageWidth"); err == nil {
		info.Width = int(w)
	}
	if h, err := fi.GetInt("ImageHeight"); err == nil {
		info.Height = int(h)
	}
	if d, err := fi.GetFloat("Duration"); err == nil {
		info.Duration = d
	}
	if br, err := fi.GetFloat("AvgBitrate"); err == nil {
		info.Bitrate = br
	}

	return info, nil
}

// Thumbnail is unimplemented for every media kind: still-image thumbnailing
// is handled directly via disintegration/imaging in the photo engine, and
// video frame extraction needs a decoding toolkit this module does not
// carry.
func (p *ExifToolProber) Thumbnail(path string, maxWidth, maxHeight int) ([]byte, error) {
	return nil, ErrUnsupportedMedia
}
