// package models defines the data model for the download orchestration service.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// ErrInvalidModel is returned when a model fails validation
var ErrInvalidModel = fmt.Errorf("invalid model")

// Kind enumerates the four reference types a submission may name.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindArtist   Kind = "artist"
)

// Valid reports whether k is one of the four recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTrack, KindAlbum, KindPlaylist, KindArtist:
		return true
	}
	return false
}

// Status enumerates the task state machine (spec §4.5). QUEUED through
// CANCELLED form the lifecycle; everything from Initializing through Done is
// produced by the progress callback and normalized by the worker runtime.
type Status string

const (
	StatusQueued        Status = "queued"
	StatusProcessing    Status = "processing"
	StatusInitializing  Status = "initializing"
	StatusDownloading   Status = "downloading"
	StatusProgress      Status = "progress"
	StatusRealTime      Status = "real_time"
	StatusTrackProgress Status = "track_progress"
	StatusTrackComplete Status = "track_complete"
	StatusSkipped       Status = "skipped"
	StatusRetrying      Status = "retrying"
	StatusError         Status = "error"
	StatusDone          Status = "done"
	StatusComplete      Status = "complete"
	StatusCancelled     Status = "cancelled"
	StatusInterrupted   Status = "interrupted"
)

// Terminal reports whether s is one from which no further status may append.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusCancelled, StatusError:
		return true
	}
	return false
}

// Display names the human-facing title/artist pair for a task.
type Display struct {
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
}

// Task is a unit of work accepted by the scheduler. It is the JSON value
// stored at task:{id}:info in the task state store, so its fields are
// exported and tagged rather than hidden behind getters.
type Task struct {
	TaskID        string         `json:"task_id"`
	Kind          Kind           `json:"kind"`
	SourceURL     string         `json:"source_url"`
	Display       Display        `json:"display"`
	Parameters    map[string]any `json:"parameters"`
	Fingerprint   string         `json:"fingerprint"`
	RetryOf       string         `json:"retry_of,omitempty"`
	RetryCount    int            `json:"retry_count"`
	ChildrenTable string         `json:"children_table,omitempty"`
	FromWatch     bool           `json:"from_watch,omitempty"`
	Submitter     string         `json:"submitter,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ID returns the task's identifier. Task is stored directly as a TSS JSON
// value rather than through [Repository], so it does not implement [Model]
// (its CreatedAt field would collide with the interface method of the same
// name); this and Validate are the only methods it needs.
func (t *Task) ID() string { return t.TaskID }

// Validate checks the invariants spec.md §3 requires of a Task.
func (t *Task) Validate() error {
	if t.TaskID == "" {
		return fmt.Errorf("%w: missing task id", ErrInvalidModel)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: invalid kind %q", ErrInvalidModel, t.Kind)
	}
	if t.SourceURL == "" {
		return fmt.Errorf("%w: missing source url", ErrInvalidModel)
	}
	if t.RetryCount < 0 {
		return fmt.Errorf("%w: negative retry count", ErrInvalidModel)
	}
	return nil
}

// TaskStatus is one append-only entry in a task's status log.
type TaskStatus struct {
	StatusID int            `json:"status_id"`
	TaskID   string         `json:"task_id"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Encode serializes the status entry to the form stored in the task state
// store's per-task list.
func (s TaskStatus) Encode() ([]byte, error) { return json.Marshal(s) }

// WatchedPlaylist is a subscribed Spotify playlist and its reconciliation
// cursor.
type WatchedPlaylist struct {
	spotifyID                 string
	name                      string
	ownerID                   string
	ownerName                 string
	description               string
	totalTracks               int
	snapshotID                string
	batchNextOffset           int
	batchProcessingSnapshotID string
	lastChecked               time.Time
	addedAt                   time.Time
	isActive                  bool
}

func NewWatchedPlaylist(spotifyID, name, ownerID, ownerName string) *WatchedPlaylist {
	return &WatchedPlaylist{
		spotifyID: spotifyID,
		name:      name,
		ownerID:   ownerID,
		ownerName: ownerName,
		addedAt:   time.Now(),
		isActive:  true,
	}
}

func (p *WatchedPlaylist) ID() string           { return p.spotifyID }
func (p *WatchedPlaylist) CreatedAt() time.Time { return p.addedAt }
func (p *WatchedPlaylist) UpdatedAt() time.Time { return p.lastChecked }
func (p *WatchedPlaylist) Validate() error {
	if p.spotifyID == "" {
		return fmt.Errorf("%w: missing spotify id", ErrInvalidModel)
	}
	return nil
}

func (p *WatchedPlaylist) Name() string                         { return p.name }
func (p *WatchedPlaylist) Description() string                  { return p.description }
func (p *WatchedPlaylist) OwnerID() string                      { return p.ownerID }
func (p *WatchedPlaylist) OwnerName() string                    { return p.ownerName }
func (p *WatchedPlaylist) TotalTracks() int                     { return p.totalTracks }
func (p *WatchedPlaylist) SnapshotID() string                   { return p.snapshotID }
func (p *WatchedPlaylist) BatchNextOffset() int                 { return p.batchNextOffset }
func (p *WatchedPlaylist) BatchProcessingSnapshotID() string    { return p.batchProcessingSnapshotID }
func (p *WatchedPlaylist) LastChecked() time.Time               { return p.lastChecked }
func (p *WatchedPlaylist) IsActive() bool                       { return p.isActive }

func (p *WatchedPlaylist) SetDescription(d string)         { p.description = d }
func (p *WatchedPlaylist) SetTotalTracks(n int)             { p.totalTracks = n }
func (p *WatchedPlaylist) SetSnapshotID(s string)           { p.snapshotID = s }
func (p *WatchedPlaylist) SetBatchNextOffset(n int)         { p.batchNextOffset = n }
func (p *WatchedPlaylist) SetBatchProcessingSnapshotID(s string) { p.batchProcessingSnapshotID = s }
func (p *WatchedPlaylist) SetLastChecked(t time.Time)       { p.lastChecked = t }
func (p *WatchedPlaylist) SetIsActive(b bool)               { p.isActive = b }

// ResetCursor clears the batch cursor, as required on completion of a full
// scan or detection of a new snapshot (spec.md §3 invariant).
func (p *WatchedPlaylist) ResetCursor() {
	p.batchNextOffset = 0
	p.batchProcessingSnapshotID = ""
}

// PlaylistTrack is a per-row entry in a watched playlist's child table.
type PlaylistTrack struct {
	spotifyTrackID     string
	title              string
	artists            string
	album              string
	trackNumber        int
	durationMS         int
	addedAtPlaylist    time.Time
	addedToDB          time.Time
	isPresentInSpotify bool
	lastSeenInSpotify  time.Time
	snapshotID         string
	finalPath          string
}

func NewPlaylistTrack(spotifyTrackID, title, artists, album string, trackNumber, durationMS int) *PlaylistTrack {
	now := time.Now()
	return &PlaylistTrack{
		spotifyTrackID:     spotifyTrackID,
		title:              title,
		artists:            artists,
		album:              album,
		trackNumber:        trackNumber,
		durationMS:         durationMS,
		addedToDB:          now,
		isPresentInSpotify: true,
		lastSeenInSpotify:  now,
	}
}

func (t *PlaylistTrack) ID() string           { return t.spotifyTrackID }
func (t *PlaylistTrack) CreatedAt() time.Time { return t.addedToDB }
func (t *PlaylistTrack) UpdatedAt() time.Time { return t.lastSeenInSpotify }
func (t *PlaylistTrack) Validate() error {
	if t.spotifyTrackID == "" {
		return fmt.Errorf("%w: missing spotify track id", ErrInvalidModel)
	}
	return nil
}

func (t *PlaylistTrack) Title() string                 { return t.title }
func (t *PlaylistTrack) Artists() string                { return t.artists }
func (t *PlaylistTrack) Album() string                  { return t.album }
func (t *PlaylistTrack) TrackNumber() int               { return t.trackNumber }
func (t *PlaylistTrack) DurationMS() int                { return t.durationMS }
func (t *PlaylistTrack) AddedAtPlaylist() time.Time     { return t.addedAtPlaylist }
func (t *PlaylistTrack) IsPresentInSpotify() bool       { return t.isPresentInSpotify }
func (t *PlaylistTrack) LastSeenInSpotify() time.Time   { return t.lastSeenInSpotify }
func (t *PlaylistTrack) SnapshotID() string             { return t.snapshotID }
func (t *PlaylistTrack) FinalPath() string              { return t.finalPath }

func (t *PlaylistTrack) SetAddedAtPlaylist(ts time.Time) { t.addedAtPlaylist = ts }
func (t *PlaylistTrack) SetIsPresentInSpotify(b bool)    { t.isPresentInSpotify = b }
func (t *PlaylistTrack) SetLastSeenInSpotify(ts time.Time) { t.lastSeenInSpotify = ts }
func (t *PlaylistTrack) SetSnapshotID(s string)          { t.snapshotID = s }
func (t *PlaylistTrack) SetFinalPath(p string)           { t.finalPath = p }

// WatchedArtist is a subscribed Spotify artist and its reconciliation
// cursor over their discography.
type WatchedArtist struct {
	spotifyID            string
	name                 string
	genres               string
	totalAlbumsOnSpotify int
	batchNextOffset      int
	lastChecked          time.Time
	addedAt              time.Time
	isActive             bool
}

func NewWatchedArtist(spotifyID, name string) *WatchedArtist {
	return &WatchedArtist{spotifyID: spotifyID, name: name, addedAt: time.Now(), isActive: true}
}

func (a *WatchedArtist) ID() string           { return a.spotifyID }
func (a *WatchedArtist) CreatedAt() time.Time { return a.addedAt }
func (a *WatchedArtist) UpdatedAt() time.Time { return a.lastChecked }
func (a *WatchedArtist) Validate() error {
	if a.spotifyID == "" {
		return fmt.Errorf("%w: missing spotify id", ErrInvalidModel)
	}
	return nil
}

func (a *WatchedArtist) Name() string                 { return a.name }
func (a *WatchedArtist) Genres() string                { return a.genres }
func (a *WatchedArtist) TotalAlbumsOnSpotify() int    { return a.totalAlbumsOnSpotify }
func (a *WatchedArtist) BatchNextOffset() int         { return a.batchNextOffset }
func (a *WatchedArtist) LastChecked() time.Time       { return a.lastChecked }
func (a *WatchedArtist) IsActive() bool               { return a.isActive }

func (a *WatchedArtist) SetGenres(g string)                { a.genres = g }
func (a *WatchedArtist) SetTotalAlbumsOnSpotify(n int)     { a.totalAlbumsOnSpotify = n }
func (a *WatchedArtist) SetBatchNextOffset(n int)          { a.batchNextOffset = n }
func (a *WatchedArtist) SetLastChecked(t time.Time)        { a.lastChecked = t }
func (a *WatchedArtist) SetIsActive(b bool)                { a.isActive = b }

// AlbumDownloadStatus enumerates the fan-out state of an album discovered
// during artist reconciliation.
type AlbumDownloadStatus int

const (
	AlbumDownloadNone AlbumDownloadStatus = iota
	AlbumDownloadInitiated
	AlbumDownloadCompleted
)

// ArtistAlbum is a per-row entry in a watched artist's child table.
type ArtistAlbum struct {
	albumSpotifyID               string
	title                        string
	albumType                    string
	releaseDate                  string
	totalTracks                  int
	addedToDB                    time.Time
	lastSeenOnSpotify            time.Time
	downloadTaskID               string
	downloadStatus               AlbumDownloadStatus
	isFullyDownloadedManagedByApp bool
}

func NewArtistAlbum(albumSpotifyID, title, albumType, releaseDate string, totalTracks int) *ArtistAlbum {
	now := time.Now()
	return &ArtistAlbum{
		albumSpotifyID:    albumSpotifyID,
		title:             title,
		albumType:         albumType,
		releaseDate:       releaseDate,
		totalTracks:       totalTracks,
		addedToDB:         now,
		lastSeenOnSpotify: now,
	}
}

func (a *ArtistAlbum) ID() string           { return a.albumSpotifyID }
func (a *ArtistAlbum) CreatedAt() time.Time { return a.addedToDB }
func (a *ArtistAlbum) UpdatedAt() time.Time { return a.lastSeenOnSpotify }
func (a *ArtistAlbum) Validate() error {
	if a.albumSpotifyID == "" {
		return fmt.Errorf("%w: missing album spotify id", ErrInvalidModel)
	}
	return nil
}

func (a *ArtistAlbum) Title() string                          { return a.title }
func (a *ArtistAlbum) AlbumType() string                       { return a.albumType }
func (a *ArtistAlbum) ReleaseDate() string                      { return a.releaseDate }
func (a *ArtistAlbum) TotalTracks() int                         { return a.totalTracks }
func (a *ArtistAlbum) LastSeenOnSpotify() time.Time             { return a.lastSeenOnSpotify }
func (a *ArtistAlbum) DownloadTaskID() string                   { return a.downloadTaskID }
func (a *ArtistAlbum) DownloadStatus() AlbumDownloadStatus      { return a.downloadStatus }
func (a *ArtistAlbum) IsFullyDownloadedManagedByApp() bool      { return a.isFullyDownloadedManagedByApp }

func (a *ArtistAlbum) SetLastSeenOnSpotify(t time.Time)         { a.lastSeenOnSpotify = t }
func (a *ArtistAlbum) SetDownloadTaskID(id string)              { a.downloadTaskID = id }
func (a *ArtistAlbum) SetDownloadStatus(s AlbumDownloadStatus)  { a.downloadStatus = s }
func (a *ArtistAlbum) SetIsFullyDownloadedManagedByApp(b bool)  { a.isFullyDownloadedManagedByApp = b }

// DownloadHistory is one row per completed or failed parent task.
type DownloadHistory struct {
	id                string
	downloadType      Kind
	title             string
	artists           string
	timestamp         time.Time
	status            string
	service            string
	qualityFormat      string
	qualityBitrate     string
	totalTracks        int
	successfulTracks   int
	failedTracks       int
	skippedTracks      int
	childrenTable      string
	taskID             string
	externalIDs        string
	releaseDate        string
	genres             string
	images             string
	owner              string
	albumType          string
	durationTotalMS    int
	explicit           bool
}

func NewDownloadHistory(taskID string, downloadType Kind, title, artists, service string) *DownloadHistory {
	return &DownloadHistory{
		id:           taskID,
		taskID:       taskID,
		downloadType: downloadType,
		title:        title,
		artists:      artists,
		service:      service,
		timestamp:    time.Now(),
		status:       string(StatusProcessing),
	}
}

func (h *DownloadHistory) ID() string           { return h.id }
func (h *DownloadHistory) CreatedAt() time.Time { return h.timestamp }
func (h *DownloadHistory) UpdatedAt() time.Time { return h.timestamp }
func (h *DownloadHistory) Validate() error {
	if h.taskID == "" {
		return fmt.Errorf("%w: missing task id", ErrInvalidModel)
	}
	if !h.downloadType.Valid() {
		return fmt.Errorf("%w: invalid download type %q", ErrInvalidModel, h.downloadType)
	}
	return nil
}

func (h *DownloadHistory) DownloadType() Kind        { return h.downloadType }
func (h *DownloadHistory) Title() string             { return h.title }
func (h *DownloadHistory) Artists() string           { return h.artists }
func (h *DownloadHistory) Status() string            { return h.status }
func (h *DownloadHistory) Service() string           { return h.service }
func (h *DownloadHistory) QualityFormat() string     { return h.qualityFormat }
func (h *DownloadHistory) QualityBitrate() string    { return h.qualityBitrate }
func (h *DownloadHistory) TotalTracks() int          { return h.totalTracks }
func (h *DownloadHistory) SuccessfulTracks() int     { return h.successfulTracks }
func (h *DownloadHistory) FailedTracks() int         { return h.failedTracks }
func (h *DownloadHistory) SkippedTracks() int        { return h.skippedTracks }
func (h *DownloadHistory) ChildrenTable() string     { return h.childrenTable }
func (h *DownloadHistory) TaskID() string            { return h.taskID }
func (h *DownloadHistory) ExternalIDs() string        { return h.externalIDs }
func (h *DownloadHistory) ReleaseDate() string        { return h.releaseDate }
func (h *DownloadHistory) Genres() string             { return h.genres }
func (h *DownloadHistory) Images() string             { return h.images }
func (h *DownloadHistory) Owner() string              { return h.owner }
func (h *DownloadHistory) AlbumType() string          { return h.albumType }
func (h *DownloadHistory) DurationTotalMS() int       { return h.durationTotalMS }
func (h *DownloadHistory) Explicit() bool             { return h.explicit }
func (h *DownloadHistory) Timestamp() time.Time       { return h.timestamp }

func (h *DownloadHistory) SetStatus(s string)              { h.status = s }
func (h *DownloadHistory) SetQuality(format, bitrate string) { h.qualityFormat = format; h.qualityBitrate = bitrate }
func (h *DownloadHistory) SetTotalTracks(n int)             { h.totalTracks = n }
func (h *DownloadHistory) SetSummary(ok, failed, skipped int) {
	h.successfulTracks, h.failedTracks, h.skippedTracks = ok, failed, skipped
}
func (h *DownloadHistory) SetChildrenTable(name string)     { h.childrenTable = name }
func (h *DownloadHistory) SetExternalIDs(json string)       { h.externalIDs = json }
func (h *DownloadHistory) SetTimestamp(t time.Time)         { h.timestamp = t }
func (h *DownloadHistory) SetReleaseMetadata(releaseDate, genres, images, owner, albumType string, durationTotalMS int, explicit bool) {
	h.releaseDate, h.genres, h.images, h.owner, h.albumType = releaseDate, genres, images, owner, albumType
	h.durationTotalMS, h.explicit = durationTotalMS, explicit
}

// ChildTrackRow is one row in an album_* / playlist_* child table recording
// a single track's terminal fetch outcome.
type ChildTrackRow struct {
	Title          string
	Artists        string
	AlbumTitle     string
	DurationMS     int
	TrackNumber    int
	DiscNumber     int
	Explicit       bool
	Status         string
	ExternalIDs    string
	Genres         string
	ISRC           string
	Timestamp      time.Time
	Position       int
	Metadata       string
	Service        string
	QualityFormat  string
	QualityBitrate string
}
