// Package watch implements the watch reconciliation engine (WE): a
// round-robin ticker that keeps each watched playlist's and watched
// artist's local record in sync with the remote catalogue, submitting
// download tasks for newly discovered tracks and albums one item at a
// time, then regenerating playlist .m3u files after a full sync.
package watch
