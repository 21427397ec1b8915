// Package scheduler implements the download task scheduler/queue manager
// (SQM): submission with fingerprint-based deduplication, cancellation,
// retry, pause/resume, and listing, dispatching accepted jobs onto one of
// two named worker pools backed by the shared coordination store.
package scheduler
