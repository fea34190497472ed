package domain

import "regexp"

// trackIDPattern matches the upstream catalog's 22-character base62 ids.
var trackIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// ValidTrackID reports whether s has the shape of an upstream track id.
func ValidTrackID(s string) bool {
	return trackIDPattern.MatchString(s)
}

// Track represents a musical track in the domain layer.
type Track struct {
	ID         string
	Title      string
	Artist     string
	Album      string // optional
	Genre      string // optional, usually only known for local-store tracks
	DurationMs int
	CoverURL   string
	PreviewURL string
	Features   AudioFeatures // zero value means "not yet known"
}
