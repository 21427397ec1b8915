package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Scheduler and worker runtime errors (spec.md §7)
	ErrDuplicateDownload = fmt.Errorf("duplicate download: task already active for this fingerprint")
	ErrRateLimited       = fmt.Errorf("rate limited")
	ErrFetchFailed       = fmt.Errorf("fetch failed")
	ErrCancelled         = fmt.Errorf("task cancelled")
	ErrUnknownTask       = fmt.Errorf("unknown task id")
	ErrNotRetryable      = fmt.Errorf("task is not in a retryable state")
	ErrMaxRetriesReached = fmt.Errorf("max retries reached")

	// Non-fatal, logged-only errors
	ErrSchemaEvolution = fmt.Errorf("schema evolution step failed")
	ErrWatchProvider   = fmt.Errorf("watch provider call failed")

	// Fatal startup errors
	ErrVersionMismatch = fmt.Errorf("config version mismatch")
)
