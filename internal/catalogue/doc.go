// Package catalogue implements the metadata provider: a thin, cacheable
// wrapper over the Spotify and Deezer catalogue APIs for track, album,
// playlist, and artist lookup. Every outbound call is routed through
// internal/ratelimit before it reaches the network.
package catalogue
