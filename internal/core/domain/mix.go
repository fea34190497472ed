package domain

// SetDescription is the generated title card for a mix.
type SetDescription struct {
	Title       string
	Description string
	Emoji       string
}

// Mix is the assembled result of one generation request. It is created fresh
// per request and not persisted by the core.
type Mix struct {
	ID          string
	Title       string
	Description string
	Emoji       string
	VibeText    string
	RankSource  string // "generative" or "similarity"
	Tracks      []Track
}
