// Package player defines the audio process contract and its mpv implementation.
//
// The playback controller talks to the audio player exclusively through
// [Process]: commands in, an ordered event stream out. Events are delivered over
// a channel in the order the player emits them, never as inline callbacks, so
// the control loop can consume them FIFO and tests can substitute a scripted
// fake for the real process.
package player

import "time"

// EventKind enumerates the signals the audio process emits.
type EventKind int

const (
	// EventStarted: playback of the loaded track began.
	EventStarted EventKind = iota
	// EventStalled: buffering/underrun, playback paused involuntarily.
	EventStalled
	// EventResumed: recovered from a stall.
	EventResumed
	// EventFinished: natural end of track.
	EventFinished
	// EventError: the player failed; Err carries the reason.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStalled:
		return "stalled"
	case EventResumed:
		return "resumed"
	case EventFinished:
		return "finished"
	case EventError:
		return "error"
	default:
		return ""
	}
}

// Event is one signal from the audio process. TrackID identifies the track the
// event belongs to, letting consumers discard events for tracks they already
// moved past.
type Event struct {
	Kind    EventKind
	TrackID string
	Err     error
}

// Process is the contract for the external audio player. Implementations must
// deliver events on the [Process.Events] channel in emission order.
type Process interface {
	// Load replaces the current media with the given URL and starts playing it.
	// Events for this load carry trackID.
	Load(url, trackID string) error

	// Pause suspends playback.
	Pause() error

	// Resume continues suspended playback.
	Resume() error

	// Stop halts playback and unloads the current media.
	Stop() error

	// Seek jumps to an absolute position in the current track.
	Seek(offset time.Duration) error

	// SetVolume sets the output volume in percent (0-100).
	SetVolume(percent int) error

	// Events returns the ordered event stream. The channel closes when the
	// process shuts down.
	Events() <-chan Event

	// Close tears the player down and releases its resources.
	Close() error
}
