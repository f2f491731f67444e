package remote

import (
	"context"
	"time"

	"github.com/wavelet-player/wavelet/internal/catalog"
)

// Client is the remote service contract consumed by the core engine. The HTTP
// implementation lives in this package; tests substitute fakes.
type Client interface {
	// FetchDelta requests records of one entity class changed since the given
	// checkpoint. A zero checkpoint requests the full class. The returned delta
	// carries the next checkpoint to persist once the delta is durably applied.
	FetchDelta(ctx context.Context, class catalog.EntityClass, since catalog.Checkpoint) (*catalog.Delta, error)

	// ResolveStreamURL exchanges a track's resolver token for a playable URL.
	// The URL expires; callers resolve immediately before loading the player.
	ResolveStreamURL(ctx context.Context, trackID string) (*StreamURL, error)
}

// StreamURL is a resolved, time-limited playback URL.
type StreamURL struct {
	URL       string
	ExpiresAt time.Time
}

// Expired reports whether the URL is already past its expiry.
func (s StreamURL) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
