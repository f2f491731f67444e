package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Remote service errors
	ErrAuthExpired = fmt.Errorf("authentication expired")
	ErrRateLimited = fmt.Errorf("rate limited by remote service")
	ErrNetwork     = fmt.Errorf("network request failed")
	ErrNotFound    = fmt.Errorf("resource not found")
	ErrTimeout     = fmt.Errorf("operation timed out")

	// Catalog errors
	ErrCorruptStore = fmt.Errorf("catalog store is corrupt")
	ErrSyncInFlight = fmt.Errorf("sync already in flight for entity class")

	// Playback errors
	ErrStreamResolution = fmt.Errorf("stream URL resolution failed")
	ErrPlaybackLaunch   = fmt.Errorf("player failed to start track")
	ErrStallTimeout     = fmt.Errorf("playback stalled past timeout")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
