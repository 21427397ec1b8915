package catalogue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeezerProvider(t *testing.T) {
	t.Run("Name", func(t *testing.T) {
		if p := NewDeezerProvider(); p.Name() != "deezer" {
			t.Errorf("expected name deezer, got %s", p.Name())
		}
	})

	t.Run("GetTrack", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/track/123" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":123,"title":"Song","artist":{"name":"Artist"},"album":{"id":9,"title":"Album"},"duration":200,"explicit_lyrics":false,"isrc":"XYZ"}`))
		}))
		defer server.Close()

		p := NewDeezerProviderWithBaseURL(server.URL)
		track, err := p.GetTrack(context.Background(), "123")
		if err != nil {
			t.Fatalf("GetTrack: %v", err)
		}
		if track.Title != "Song" || track.DurationMS != 200000 {
			t.Errorf("unexpected track: %+v", track)
		}
	})

	t.Run("GetPlaylist maps checksum to snapshot id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":1,"title":"Mix","checksum":"abc123","nb_tracks":10,"creator":{"name":"owner"}}`))
		}))
		defer server.Close()

		p := NewDeezerProviderWithBaseURL(server.URL)
		pl, err := p.GetPlaylist(context.Background(), "1")
		if err != nil {
			t.Fatalf("GetPlaylist: %v", err)
		}
		if pl.SnapshotID != "abc123" || pl.TotalTracks != 10 {
			t.Errorf("unexpected playlist: %+v", pl)
		}
	})

	t.Run("rate limited response surfaces RateLimitError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		p := NewDeezerProviderWithBaseURL(server.URL)
		_, err := p.GetTrack(context.Background(), "123")
		var rle *RateLimitError
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.As(err, &rle) {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if rle.RetryAfter.Seconds() != 2 {
			t.Errorf("expected retry-after 2s, got %v", rle.RetryAfter)
		}
	})

	t.Run("GetEpisode is unsupported", func(t *testing.T) {
		p := NewDeezerProvider()
		if _, err := p.GetEpisode(context.Background(), "1"); err == nil {
			t.Fatal("expected error for unsupported episode lookup")
		}
	})
}
