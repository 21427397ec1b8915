package watch

import (
	"context"

	"github.com/desertthunder/spindle/internal/catalogue"
)

// MetadataProvider is the narrow slice of catalogue.Service the watch
// engine needs, kept as an interface so reconciliation can be tested
// against a stub instead of a live *catalogue.Service plus rate
// limiter.
type MetadataProvider interface {
	GetPlaylist(ctx context.Context, service, id string) (*catalogue.Playlist, error)
	PlaylistTracks(ctx context.Context, service, id string, limit, offset int) (catalogue.Page[catalogue.Track], error)
	ArtistDiscography(ctx context.Context, service, id string, includeGroups []string, limit, offset int) (catalogue.Page[catalogue.Album], error)
}
