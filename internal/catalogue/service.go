package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/ratelimit"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
)

// playlistCacheTTL is the 5-minute playlist-metadata cache window from
// spec.md §4.2, reusing taskstore.Store's TTL-backed Get/Set rather than
// a second cache type.
const playlistCacheTTL = 5 * time.Minute

const playlistCacheKeyPrefix = "catalogue:playlist:"

// Service is the metadata provider facade every caller (scheduler,
// worker, watch engine) goes through. It dispatches by provider name,
// guards every outbound call with the shared rate limiter, and caches
// playlist lookups for playlistCacheTTL, per spec.md §4.2.
type Service struct {
	providers map[string]Provider
	limiter   *ratelimit.Limiter
	cache     taskstore.Store
	log       *log.Logger
}

// NewService wires the given providers (keyed by Provider.Name) behind
// one shared Limiter and playlist cache.
func NewService(limiter *ratelimit.Limiter, cache taskstore.Store, logger *log.Logger, providers ...Provider) *Service {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Service{providers: byName, limiter: limiter, cache: cache, log: logger}
}

func (s *Service) provider(service string) (Provider, error) {
	p, ok := s.providers[service]
	if !ok {
		return nil, fmt.Errorf("%w: unknown catalogue provider %q", shared.ErrInvalidArgument, service)
	}
	return p, nil
}

// guard runs fn behind the rate limiter, retrying once and feeding
// ObserveRateLimited when fn reports a 429 via RateLimitError, mirroring
// the retry wiring the rate limiter's own Wait loop uses internally but
// at the call-site level since only the provider knows when a 429
// actually happened.
func (s *Service) guard(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		err := fn(ctx)
		var rle *RateLimitError
		if errors.As(err, &rle) {
			s.limiter.ObserveRateLimited(ctx, rle.RetryAfter, attempt)
			if attempt < 1 {
				continue
			}
		}
		return err
	}
}

func (s *Service) GetTrack(ctx context.Context, service, id string) (*Track, error) {
	p, err := s.provider(service)
	if err != nil {
		return nil, err
	}
	var track *Track
	err = s.guard(ctx, func(ctx context.Context) error {
		t, err := p.GetTrack(ctx, id)
		track = t
		return err
	})
	return track, err
}

func (s *Service) GetAlbum(ctx context.Context, service, id string) (*Album, error) {
	p, err := s.provider(service)
	if err != nil {
		return nil, err
	}
	var album *Album
	err = s.guard(ctx, func(ctx context.Context) error {
		a, err := p.GetAlbum(ctx, id)
		album = a
		return err
	})
	return album, err
}

func (s *Service) AlbumTracks(ctx context.Context, service, id string, limit, offset int) (Page[Track], error) {
	p, err := s.provider(service)
	if err != nil {
		return Page[Track]{}, err
	}
	var page Page[Track]
	err = s.guard(ctx, func(ctx context.Context) error {
		pg, err := p.AlbumTracks(ctx, id, limit, offset)
		page = pg
		return err
	})
	return page, err
}

// GetPlaylist serves from the cache when present and unexpired,
// otherwise fetches through the rate limiter and repopulates the cache.
func (s *Service) GetPlaylist(ctx context.Context, service, id string) (*Playlist, error) {
	cacheKey := playlistCacheKeyPrefix + service + ":" + id
	if cached, ok := s.cachedPlaylist(ctx, cacheKey); ok {
		return cached, nil
	}

	p, err := s.provider(service)
	if err != nil {
		return nil, err
	}
	var playlist *Playlist
	err = s.guard(ctx, func(ctx context.Context) error {
		pl, err := p.GetPlaylist(ctx, id)
		playlist = pl
		return err
	})
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(playlist); err == nil {
		if err := s.cache.Set(ctx, cacheKey, raw, playlistCacheTTL); err != nil {
			s.log.Warn("catalogue: failed to cache playlist", "id", id, "err", err)
		}
	}
	return playlist, nil
}

func (s *Service) cachedPlaylist(ctx context.Context, cacheKey string) (*Playlist, bool) {
	raw, err := s.cache.Get(ctx, cacheKey)
	if err != nil || raw == nil {
		return nil, false
	}
	var playlist Playlist
	if err := json.Unmarshal(raw, &playlist); err != nil {
		return nil, false
	}
	return &playlist, true
}

func (s *Service) PlaylistTracks(ctx context.Context, service, id string, limit, offset int) (Page[Track], error) {
	p, err := s.provider(service)
	if err != nil {
		return Page[Track]{}, err
	}
	var page Page[Track]
	err = s.guard(ctx, func(ctx context.Context) error {
		pg, err := p.PlaylistTracks(ctx, id, limit, offset)
		page = pg
		return err
	})
	return page, err
}

// PlaylistSnapshotChanged reports whether id's current remote snapshot
// identifier differs from lastSnapshot, bypassing the playlist cache
// since the watch engine needs the live value to decide whether a
// reconciliation pass is necessary, per spec.md's watch round.
func (s *Service) PlaylistSnapshotChanged(ctx context.Context, service, id, lastSnapshot string) (bool, string, error) {
	p, err := s.provider(service)
	if err != nil {
		return false, "", err
	}
	var snapshot string
	err = s.guard(ctx, func(ctx context.Context) error {
		snap, err := p.PlaylistSnapshotID(ctx, id)
		snapshot = snap
		return err
	})
	if err != nil {
		return false, "", err
	}
	return snapshot != lastSnapshot, snapshot, nil
}

func (s *Service) GetArtist(ctx context.Context, service, id string) (*Artist, error) {
	p, err := s.provider(service)
	if err != nil {
		return nil, err
	}
	var artist *Artist
	err = s.guard(ctx, func(ctx context.Context) error {
		a, err := p.GetArtist(ctx, id)
		artist = a
		return err
	})
	return artist, err
}

func (s *Service) ArtistDiscography(ctx context.Context, service, id string, includeGroups []string, limit, offset int) (Page[Album], error) {
	p, err := s.provider(service)
	if err != nil {
		return Page[Album]{}, err
	}
	var page Page[Album]
	err = s.guard(ctx, func(ctx context.Context) error {
		pg, err := p.ArtistDiscography(ctx, id, includeGroups, limit, offset)
		page = pg
		return err
	})
	return page, err
}

func (s *Service) GetEpisode(ctx context.Context, service, id string) (*Episode, error) {
	p, err := s.provider(service)
	if err != nil {
		return nil, err
	}
	var episode *Episode
	err = s.guard(ctx, func(ctx context.Context) error {
		e, err := p.GetEpisode(ctx, id)
		episode = e
		return err
	})
	return episode, err
}
