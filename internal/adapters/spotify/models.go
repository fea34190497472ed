package spotify

// Wire types for the catalog API responses.

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DurationMs int             `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
}

type savedTrackItem struct {
	Track spotifyTrack `json:"track"`
}

type savedTracksPage struct {
	Items []savedTrackItem `json:"items"`
	Total int              `json:"total"`
	Next  string           `json:"next"`
}

type tracksBatch struct {
	Tracks []spotifyTrack `json:"tracks"`
}
