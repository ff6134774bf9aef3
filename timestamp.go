package etiquette

import "time"

// nowTimestamp returns the current time as a Unix epoch float, the
// catalog's storage format for every `created`/`mtime`/`tagged_at` column,
// generalized from the teacher's epoch-seconds conversion helpers in
// catalog.go.
func nowTimestamp() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
