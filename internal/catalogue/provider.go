package catalogue

import "context"

// Provider is implemented once per remote catalogue (Spotify, Deezer).
// Every method is expected to make exactly one (or, for pagination, one
// per page) outbound HTTP call; Service is responsible for routing those
// calls through the rate limiter and caching playlist metadata, per
// spec.md §4.2.
type Provider interface {
	Name() string

	GetTrack(ctx context.Context, id string) (*Track, error)
	GetAlbum(ctx context.Context, id string) (*Album, error)
	AlbumTracks(ctx context.Context, id string, limit, offset int) (Page[Track], error)
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	PlaylistTracks(ctx context.Context, id string, limit, offset int) (Page[Track], error)
	PlaylistSnapshotID(ctx context.Context, id string) (string, error)
	GetArtist(ctx context.Context, id string) (*Artist, error)
	ArtistDiscography(ctx context.Context, id string, includeGroups []string, limit, offset int) (Page[Album], error)
	GetEpisode(ctx context.Context, id string) (*Episode, error)
}
