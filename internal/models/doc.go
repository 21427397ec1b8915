// Package models defines the domain entities shared by the scheduler, worker
// runtime, history store, and watch engine.
//
// Two families of types live here:
//
// 1. Task-lifecycle types: [Task] and [TaskStatus] describe a single
//    submission and its append-only log of state transitions.
//
// 2. Watch and history types: [WatchedPlaylist] / [PlaylistTrack] and
//    [WatchedArtist] / [ArtistAlbum] describe a subscribed item and its
//    per-child rows; [DownloadHistory] and [ChildTrackRow] describe a
//    completed parent task and its constituent tracks.
//
// All persisted entities implement [Model] (ID/CreatedAt/UpdatedAt/Validate)
// and are accessed through [Repository], a generic CRUD interface.
package models
