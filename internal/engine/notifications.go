package engine

import (
	"fmt"

	"github.com/wavelet-player/wavelet/internal/playback"
	"github.com/wavelet-player/wavelet/internal/shared"
)

// NotificationKind enumerates the events the engine surfaces to the UI.
type NotificationKind int

const (
	NoteSyncStarted NotificationKind = iota
	NoteSyncDegraded
	NoteSyncComplete
	NotePlaybackState
	NoteError
)

func (k NotificationKind) String() string {
	switch k {
	case NoteSyncStarted:
		return "sync_started"
	case NoteSyncDegraded:
		return "sync_degraded"
	case NoteSyncComplete:
		return "sync_complete"
	case NotePlaybackState:
		return "playback_state"
	case NoteError:
		return "error"
	default:
		return ""
	}
}

// Notification is one user-facing event. The UI subscribes to these instead of
// reaching into internal state.
type Notification struct {
	ID      string // unique per notification
	Kind    NotificationKind
	Message string          // human-readable message for display
	State   playback.State  // set for NotePlaybackState
	Err     error           // set for NoteError
	Data    any             // optional kind-specific payload
}

func syncStartedNote() Notification {
	return Notification{
		ID:      shared.GenerateID(),
		Kind:    NoteSyncStarted,
		Message: "Library sync started...",
	}
}

func syncDegradedNote(attempt, max int, err error) Notification {
	return Notification{
		ID:      shared.GenerateID(),
		Kind:    NoteSyncDegraded,
		Message: fmt.Sprintf("Sync degraded, retrying (%d/%d)...", attempt, max),
		Err:     err,
	}
}

func syncCompleteNote(records int) Notification {
	return Notification{
		ID:      shared.GenerateID(),
		Kind:    NoteSyncComplete,
		Message: fmt.Sprintf("Library sync complete (%d records)", records),
		Data:    records,
	}
}

func playbackNote(change playback.Change) Notification {
	message := "Playback " + change.State.String()
	if change.Entry != nil {
		message += ": " + change.Entry.TrackID
	}
	return Notification{
		ID:      shared.GenerateID(),
		Kind:    NotePlaybackState,
		Message: message,
		State:   change.State,
		Data:    change.Entry,
	}
}

func errorNote(message string, err error) Notification {
	return Notification{
		ID:      shared.GenerateID(),
		Kind:    NoteError,
		Message: message,
		Err:     err,
	}
}
