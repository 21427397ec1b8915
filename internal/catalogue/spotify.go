package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyProvider implements [Provider] over the Spotify Web API, adapted
// from the oauth2.Config + doRequest idiom in
// internal/services/spotify.go generalized from playlist-transfer
// read/export calls to the track/album/playlist/artist lookups this
// domain needs.
type SpotifyProvider struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyProvider constructs a provider from the configured Spotify
// credentials. It performs no token exchange itself: when an access
// token is configured, requests go through an oauth2 client built from
// that access token and the refresh token, which refreshes it as needed;
// without one, the provider has no token to send.
func NewSpotifyProvider(cfg shared.SpotifyConfig) (*SpotifyProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id/client_secret", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"playlist-read-private", "playlist-read-collaborative"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	p := &SpotifyProvider{config: config, httpClient: http.DefaultClient, baseURL: spotifyBaseURL}
	if cfg.AccessToken != "" {
		p.token = &oauth2.Token{AccessToken: cfg.AccessToken, RefreshToken: cfg.RefreshToken}
		p.httpClient = config.Client(context.Background(), p.token)
	}
	return p, nil
}

// newSpotifyProviderForTest builds a provider pointed at an httptest
// server with a token already set, bypassing the OAuth2 exchange.
func newSpotifyProviderForTest(baseURL string) *SpotifyProvider {
	return &SpotifyProvider{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		token:      &oauth2.Token{AccessToken: "test-token"},
	}
}

func (p *SpotifyProvider) Name() string { return "spotify" }

func (p *SpotifyProvider) doRequest(ctx context.Context, endpoint string, result any) error {
	if p.token == nil {
		return fmt.Errorf("%w: spotify provider has no access token", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("catalogue: build spotify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalogue: spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return newRateLimitError(resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("catalogue: decode spotify response: %w", err)
		}
	}
	return nil
}

func (p *SpotifyProvider) GetTrack(ctx context.Context, id string) (*Track, error) {
	var raw spotifyTrack
	if err := p.doRequest(ctx, "/tracks/"+id, &raw); err != nil {
		return nil, err
	}
	t := raw.toTrack()
	return &t, nil
}

func (p *SpotifyProvider) GetAlbum(ctx context.Context, id string) (*Album, error) {
	var raw spotifyAlbum
	if err := p.doRequest(ctx, "/albums/"+id, &raw); err != nil {
		return nil, err
	}
	a := raw.toAlbum()
	return &a, nil
}

func (p *SpotifyProvider) AlbumTracks(ctx context.Context, id string, limit, offset int) (Page[Track], error) {
	limit = clampLimit(limit, 50)
	var raw struct {
		Items []spotifyTrack `json:"items"`
		Total int            `json:"total"`
		Next  *string        `json:"next"`
	}
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", id, limit, offset)
	if err := p.doRequest(ctx, endpoint, &raw); err != nil {
		return Page[Track]{}, err
	}
	items := make([]Track, 0, len(raw.Items))
	for _, t := range raw.Items {
		items = append(items, t.toTrack())
	}
	return Page[Track]{Items: items, Total: raw.Total, HasMore: raw.Next != nil}, nil
}

func (p *SpotifyProvider) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var raw spotifyPlaylist
	if err := p.doRequest(ctx, "/playlists/"+id+"?fields=id,name,description,owner,snapshot_id,tracks.total,images", &raw); err != nil {
		return nil, err
	}
	pl := raw.toPlaylist()
	return &pl, nil
}

func (p *SpotifyProvider) PlaylistTracks(ctx context.Context, id string, limit, offset int) (Page[Track], error) {
	limit = clampLimit(limit, 50)
	var raw struct {
		Items []struct {
			Track spotifyTrack `json:"track"`
		} `json:"items"`
		Total int     `json:"total"`
		Next  *string `json:"next"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", id, limit, offset)
	if err := p.doRequest(ctx, endpoint, &raw); err != nil {
		return Page[Track]{}, err
	}
	items := make([]Track, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, it.Track.toTrack())
	}
	return Page[Track]{Items: items, Total: raw.Total, HasMore: raw.Next != nil}, nil
}

func (p *SpotifyProvider) PlaylistSnapshotID(ctx context.Context, id string) (string, error) {
	var raw struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := p.doRequest(ctx, "/playlists/"+id+"?fields=snapshot_id", &raw); err != nil {
		return "", err
	}
	return raw.SnapshotID, nil
}

func (p *SpotifyProvider) GetArtist(ctx context.Context, id string) (*Artist, error) {
	var raw spotifyArtist
	if err := p.doRequest(ctx, "/artists/"+id, &raw); err != nil {
		return nil, err
	}
	a := raw.toArtist()
	return &a, nil
}

func (p *SpotifyProvider) ArtistDiscography(ctx context.Context, id string, includeGroups []string, limit, offset int) (Page[Album], error) {
	limit = clampLimit(limit, 50)
	groups := strings.Join(includeGroups, ",")
	if groups == "" {
		groups = "album,single,appears_on"
	}
	var raw struct {
		Items []spotifyAlbum `json:"items"`
		Total int            `json:"total"`
		Next  *string        `json:"next"`
	}
	endpoint := fmt.Sprintf("/artists/%s/albums?include_groups=%s&limit=%d&offset=%d", id, groups, limit, offset)
	if err := p.doRequest(ctx, endpoint, &raw); err != nil {
		return Page[Album]{}, err
	}
	items := make([]Album, 0, len(raw.Items))
	for _, a := range raw.Items {
		items = append(items, a.toAlbum())
	}
	return Page[Album]{Items: items, Total: raw.Total, HasMore: raw.Next != nil}, nil
}

func (p *SpotifyProvider) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	var raw struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DurationMS int    `json:"duration_ms"`
		Show       struct {
			Name string `json:"name"`
		} `json:"show"`
	}
	if err := p.doRequest(ctx, "/episodes/"+id, &raw); err != nil {
		return nil, err
	}
	return &Episode{ID: raw.ID, Title: raw.Name, ShowTitle: raw.Show.Name, DurationMS: raw.DurationMS}, nil
}

// Wire types mirroring the Spotify Web API response shapes this provider
// consumes, kept separate from the provider-agnostic types in types.go.

type spotifyArtistRef struct {
	Name string `json:"name"`
}

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyTrack struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Artists     []spotifyArtistRef  `json:"artists"`
	Album       struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"album"`
	DurationMS  int  `json:"duration_ms"`
	DiscNumber  int  `json:"disc_number"`
	TrackNumber int  `json:"track_number"`
	Explicit    bool `json:"explicit"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
}

func (t spotifyTrack) toTrack() Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return Track{
		ID: t.ID, Title: t.Name, Artists: names,
		AlbumID: t.Album.ID, AlbumTitle: t.Album.Name,
		DurationMS: t.DurationMS, TrackNumber: t.TrackNumber, DiscNumber: t.DiscNumber,
		Explicit: t.Explicit, ISRC: t.ExternalIDs.ISRC,
	}
}

type spotifyAlbum struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtistRef `json:"artists"`
	ReleaseDate string             `json:"release_date"`
	Genres      []string           `json:"genres"`
	Images      []spotifyImage     `json:"images"`
	AlbumType   string             `json:"album_type"`
	TotalTracks int                `json:"total_tracks"`
}

func (a spotifyAlbum) toAlbum() Album {
	names := make([]string, 0, len(a.Artists))
	for _, ar := range a.Artists {
		names = append(names, ar.Name)
	}
	images := make([]string, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, img.URL)
	}
	return Album{
		ID: a.ID, Title: a.Name, Artists: names, ReleaseDate: a.ReleaseDate,
		Genres: a.Genres, Images: images, AlbumType: a.AlbumType, TotalTracks: a.TotalTracks,
	}
}

type spotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	SnapshotID string `json:"snapshot_id"`
	Tracks     struct {
		Total int `json:"total"`
	} `json:"tracks"`
	Images []spotifyImage `json:"images"`
}

func (p spotifyPlaylist) toPlaylist() Playlist {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, img.URL)
	}
	return Playlist{
		ID: p.ID, Title: p.Name, Description: p.Description, Owner: p.Owner.DisplayName,
		SnapshotID: p.SnapshotID, TotalTracks: p.Tracks.Total, Images: images,
	}
}

type spotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []spotifyImage `json:"images"`
}

func (a spotifyArtist) toArtist() Artist {
	images := make([]string, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, img.URL)
	}
	return Artist{ID: a.ID, Name: a.Name, Genres: a.Genres, Images: images}
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return max
	}
	if limit > max {
		return max
	}
	return limit
}
