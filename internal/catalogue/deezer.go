package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/spindle/internal/shared"
)

const defaultDeezerBaseURL = "https://api.deezer.com"

// DeezerProvider implements [Provider] over Deezer's public REST API.
// Deezer's catalogue endpoints require no authentication, so this
// provider carries only an http.Client, following the teacher's
// "proxy" provider shape in internal/services/youtube.go (baseURL kept
// as an overridable field for the same reason YouTubeService carries
// one: tests point it at an httptest server).
type DeezerProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewDeezerProvider() *DeezerProvider {
	return &DeezerProvider{baseURL: defaultDeezerBaseURL, httpClient: http.DefaultClient}
}

// NewDeezerProviderWithBaseURL is used by tests to point the provider at
// an httptest server instead of the real Deezer API.
func NewDeezerProviderWithBaseURL(baseURL string) *DeezerProvider {
	return &DeezerProvider{baseURL: baseURL, httpClient: http.DefaultClient}
}

func (p *DeezerProvider) Name() string { return "deezer" }

func (p *DeezerProvider) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("catalogue: build deezer request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalogue: deezer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return newRateLimitError(resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: deezer status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("catalogue: decode deezer response: %w", err)
		}
	}
	return nil
}

func (p *DeezerProvider) GetTrack(ctx context.Context, id string) (*Track, error) {
	var raw deezerTrack
	if err := p.doRequest(ctx, "/track/"+id, &raw); err != nil {
		return nil, err
	}
	t := raw.toTrack()
	return &t, nil
}

func (p *DeezerProvider) GetAlbum(ctx context.Context, id string) (*Album, error) {
	var raw deezerAlbum
	if err := p.doRequest(ctx, "/album/"+id, &raw); err != nil {
		return nil, err
	}
	a := raw.toAlbum()
	return &a, nil
}

func (p *DeezerProvider) AlbumTracks(ctx context.Context, id string, limit, offset int) (Page[Track], error) {
	limit = clampLimit(limit, 50)
	var raw deezerList[deezerTrack]
	endpoint := fmt.Sprintf("/album/%s/tracks?limit=%d&index=%d", id, limit, offset)
	if err := p.doRequest(ctx, endpoint, &raw); err != nil {
		return Page[Track]{}, err
	}
	items := make([]Track, 0, len(raw.Data))
	for _, t := range raw.Data {
		items = append(items, t.toTrack())
	}
	return Page[Track]{Items: items, Total: raw.Total, HasMore: raw.Next != ""}, nil
}

func (p *DeezerProvider) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var raw deezerPlaylist
	if err := p.doRequest(ctx, "/playlist/"+id, &raw); err != nil {
		return nil, err
	}
	pl := raw.toPlaylist()
	return &pl, nil
}

func (p *DeezerProvider) PlaylistTracks(ctx context.Context, id string, limit, offset int) (Page[Track], error) {
	limit = clampLimit(limit, 50)
	var raw deezerList[deezerTrack]
	endpoint := fmt.Sprintf("/playlist/%s/tracks?limit=%d&index=%d", id, limit, offset)
	if err := p.doRequest(ctx, endpoint, &raw); err != nil {
		return Page[Track]{}, err
	}
	items := make([]Track, 0, len(raw.Data))
	for _, t := range raw.Data {
		items = append(items, t.toTrack())
	}
	return Page[Track]{Items: items, Total: raw.Total, HasMore: raw.Next != ""}, nil
}

// PlaylistSnapshotID: Deezer has no snapshot-id concept; the checksum
// field serves the same reconciliation purpose (changes whenever the
// playlist's track list changes), per original_source's use of Deezer as
// a fallback provider.
func (p *DeezerProvider) PlaylistSnapshotID(ctx context.Context, id string) (string, error) {
	var raw struct {
		Checksum string `json:"checksum"`
	}
	if err := p.doRequest(ctx, "/playlist/"+id, &raw); err != nil {
		return "", err
	}
	return raw.Checksum, nil
}

func (p *DeezerProvider) GetArtist(ctx context.Context, id string) (*Artist, error) {
	var raw struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := p.doRequest(ctx, "/artist/"+id, &raw); err != nil {
		return nil, err
	}
	images := []string{}
	if raw.Picture != "" {
		images = append(images, raw.Picture)
	}
	return &Artist{ID: fmt.Sprint(raw.ID), Name: raw.Name, Images: images}, nil
}

// ArtistDiscography ignores includeGroups: Deezer's artist/albums
// endpoint has no album-type filter, so the caller filters client-side.
func (p *DeezerProvider) ArtistDiscography(ctx context.Context, id string, includeGroups []string, limit, offset int) (Page[Album], error) {
	limit = clampLimit(limit, 50)
	var raw deezerList[deezerAlbum]
	endpoint := fmt.Sprintf("/artist/%s/albums?limit=%d&index=%d", id, limit, offset)
	if err := p.doRequest(ctx, endpoint, &raw); err != nil {
		return Page[Album]{}, err
	}
	items := make([]Album, 0, len(raw.Data))
	for _, a := range raw.Data {
		items = append(items, a.toAlbum())
	}
	return Page[Album]{Items: items, Total: raw.Total, HasMore: raw.Next != ""}, nil
}

// GetEpisode: Deezer has no podcast episode catalogue; this is a
// fallback-only provider for episodes, which always resolves via
// Spotify in practice.
func (p *DeezerProvider) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	return nil, fmt.Errorf("%w: deezer has no episode catalogue", shared.ErrNotImplemented)
}

type deezerList[T any] struct {
	Data  []T    `json:"data"`
	Total int    `json:"total"`
	Next  string `json:"next"`
}

type deezerArtistRef struct {
	Name string `json:"name"`
}

type deezerTrack struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Artist deezerArtistRef `json:"artist"`
	Album  struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	} `json:"album"`
	Duration   int    `json:"duration"`
	DiskNumber int    `json:"disk_number"`
	TrackPos   int    `json:"track_position"`
	Explicit   bool   `json:"explicit_lyrics"`
	ISRC       string `json:"isrc"`
}

func (t deezerTrack) toTrack() Track {
	return Track{
		ID: fmt.Sprint(t.ID), Title: t.Title, Artists: []string{t.Artist.Name},
		AlbumID: fmt.Sprint(t.Album.ID), AlbumTitle: t.Album.Title,
		DurationMS: t.Duration * 1000, TrackNumber: t.TrackPos, DiscNumber: t.DiskNumber,
		Explicit: t.Explicit, ISRC: t.ISRC,
	}
}

type deezerAlbum struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Artist      deezerArtistRef `json:"artist"`
	ReleaseDate string          `json:"release_date"`
	RecordType  string          `json:"record_type"`
	NbTracks    int             `json:"nb_tracks"`
	Cover       string          `json:"cover"`
	Genres      struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	} `json:"genres"`
}

func (a deezerAlbum) toAlbum() Album {
	genres := make([]string, 0, len(a.Genres.Data))
	for _, g := range a.Genres.Data {
		genres = append(genres, g.Name)
	}
	images := []string{}
	if a.Cover != "" {
		images = append(images, a.Cover)
	}
	return Album{
		ID: fmt.Sprint(a.ID), Title: a.Title, Artists: []string{a.Artist.Name},
		ReleaseDate: a.ReleaseDate, Genres: genres, Images: images,
		AlbumType: a.RecordType, TotalTracks: a.NbTracks,
	}
}

type deezerPlaylist struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Checksum    string `json:"checksum"`
	NbTracks    int    `json:"nb_tracks"`
	Picture     string `json:"picture"`
	Creator     struct {
		Name string `json:"name"`
	} `json:"creator"`
}

func (p deezerPlaylist) toPlaylist() Playlist {
	images := []string{}
	if p.Picture != "" {
		images = append(images, p.Picture)
	}
	return Playlist{
		ID: fmt.Sprint(p.ID), Title: p.Title, Description: p.Description, Owner: p.Creator.Name,
		SnapshotID: p.Checksum, TotalTracks: p.NbTracks, Images: images,
	}
}
