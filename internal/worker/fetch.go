package worker

import (
	"context"

	"github.com/desertthunder/spindle/internal/models"
)

// FetchOptions carries everything a FetchLibrary implementation needs to
// locate, convert, and place a downloaded track, merged from task
// parameters by the scheduler at submit time (spec.md §6 "Outbound to
// fetch library").
type FetchOptions struct {
	Kind              models.Kind
	SourceURL         string
	Service           string
	Quality           string
	Fallback          bool
	RealTime          bool
	OutputDir         string
	DirFormat         string
	TrackFormat       string
	TracknumPadding   bool
	PadNumberWidth    int
	ConvertTo         string
	Bitrate           string
}

// EventKind enumerates the progress-callback event shapes the fetch
// library may emit, per spec.md §4.6.
type EventKind string

const (
	EventInitializing EventKind = "initializing"
	EventDownloading  EventKind = "downloading"
	EventProgress     EventKind = "progress"
	EventRealTime     EventKind = "real_time"
	EventTrackProgress EventKind = "track_progress"
	EventSkipped      EventKind = "skipped"
	EventRetrying     EventKind = "retrying"
	EventError        EventKind = "error"
	EventDone         EventKind = "done"
)

// EventScope distinguishes a "done" (or other) event describing a single
// track inside a parent download from one describing the parent download
// itself, per §4.6's "for a track child ... for an album/playlist
// parent" distinction.
type EventScope string

const (
	ScopeTrack  EventScope = "track"
	ScopeParent EventScope = "parent"
)

// FetchEvent is one progress-callback event. Only the fields relevant to
// Kind are populated; the rest are zero.
type FetchEvent struct {
	Kind  EventKind
	Scope EventScope

	DisplayName string
	TotalTracks int

	// CurrentTrack is the "m/n" form the "progress" event carries.
	CurrentTrack string

	// Percent is a fraction in [0,1] for real_time/track_progress events.
	Percent         float64
	BytesDownloaded int64
	BytesTotal      int64

	SkipReason   string
	RetryReason  string
	SecondsLeft  int
	Message      string

	// Track carries the finished track's metadata for a track-scoped
	// "done" event, to be written to the parent's child table.
	Track *models.ChildTrackRow
}

// FetchLibrary is the external downloader invoked once per job. A single
// call to Download drives the whole job; it must invoke onEvent
// synchronously from the same goroutine for every event it produces and
// return only once the job has fully completed, failed, or ctx was
// cancelled.
type FetchLibrary interface {
	Download(ctx context.Context, opts FetchOptions, onEvent func(FetchEvent)) error
}
