package catalogue

// Track is a provider-agnostic track record returned by Provider, modeled
// after the fields spec.md's history and watch sections actually consume
// (title, artists, album, duration, ISRC, explicit).
type Track struct {
	ID          string
	Title       string
	Artists     []string
	AlbumID     string
	AlbumTitle  string
	DurationMS  int
	TrackNumber int
	DiscNumber  int
	Explicit    bool
	ISRC        string
}

// Album is a provider-agnostic album record. It carries the track count
// but not the track IDs themselves.
type Album struct {
	ID              string
	Title           string
	Artists         []string
	ReleaseDate     string
	Genres          []string
	Images          []string
	AlbumType       string
	TotalTracks     int
	DurationTotalMS int
}

// Playlist is a provider-agnostic playlist record.
type Playlist struct {
	ID          string
	Title       string
	Description string
	Owner       string
	SnapshotID  string
	TotalTracks int
	Images      []string
}

// Artist is a provider-agnostic artist record.
type Artist struct {
	ID     string
	Name   string
	Genres []string
	Images []string
}

// Episode is a podcast episode, per spec.md §4.2's "get episode" endpoint.
type Episode struct {
	ID         string
	Title      string
	ShowTitle  string
	DurationMS int
}

// Page is one page of a paginated listing, per spec.md §4.2's pagination
// requirement (limit ≤ 50 for playlist tracks).
type Page[T any] struct {
	Items   []T
	Total   int
	HasMore bool
}
