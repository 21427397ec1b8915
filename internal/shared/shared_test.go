package shared

import "testing"

func TestCanonicalizeURL(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Open.Spotify.COM/playlist/abc123",
			want: "https://open.spotify.com/playlist/abc123",
		},
		{
			name: "strips trailing slash",
			in:   "https://open.spotify.com/playlist/abc123/",
			want: "https://open.spotify.com/playlist/abc123",
		},
		{
			name: "strips query string",
			in:   "https://open.spotify.com/playlist/abc123?si=xyz",
			want: "https://open.spotify.com/playlist/abc123",
		},
		{
			name: "strips fragment",
			in:   "https://open.spotify.com/playlist/abc123#footer",
			want: "https://open.spotify.com/playlist/abc123",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  https://open.spotify.com/playlist/abc123  ",
			want: "https://open.spotify.com/playlist/abc123",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalizeURL(tt.in)
			if got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("playlist", "https://open.spotify.com/playlist/abc123?si=xyz")
	b := Fingerprint("PLAYLIST", "https://open.spotify.com/playlist/abc123/")

	if a != b {
		t.Errorf("expected equivalent submissions to fingerprint identically, got %q and %q", a, b)
	}

	c := Fingerprint("track", "https://open.spotify.com/playlist/abc123")
	if a == c {
		t.Errorf("expected different kinds to fingerprint differently, got %q for both", a)
	}
}
