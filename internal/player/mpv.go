package player

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wavelet-player/wavelet/internal/shared"
	"github.com/wildeyedskies/go-mpv/mpv"
)

// MPV implements [Process] on top of libmpv. Audio only; video and album art
// rendering are disabled at option level.
type MPV struct {
	handle *mpv.Mpv
	events chan Event
	cancel context.CancelFunc
	logger *log.Logger

	mu      sync.Mutex
	pending string // track id of the last Load, becomes active on START_FILE
	active  string // track id mpv is currently playing
	stalled bool
}

// NewMPV creates and initializes an mpv instance and starts its event pump. The
// context bounds the lifetime of the pump goroutine.
func NewMPV(ctx context.Context, logger *log.Logger) (*MPV, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	handle := mpv.Create()
	handle.SetOptionString("audio-display", "no")
	handle.SetOptionString("video", "no")
	handle.ObserveProperty(0, "paused-for-cache", mpv.FORMAT_FLAG)

	if err := handle.Initialize(); err != nil {
		handle.TerminateDestroy()
		return nil, fmt.Errorf("%w: mpv initialize: %v", shared.ErrPlaybackLaunch, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &MPV{
		handle: handle,
		events: make(chan Event, 16),
		cancel: cancel,
		logger: logger,
	}
	go m.pump(ctx)

	return m, nil
}

// Load implements [Process].
func (m *MPV) Load(url, trackID string) error {
	m.mu.Lock()
	m.pending = trackID
	m.mu.Unlock()

	if err := m.handle.Command([]string{"loadfile", url}); err != nil {
		return fmt.Errorf("%w: loadfile: %v", shared.ErrPlaybackLaunch, err)
	}
	if err := m.handle.Command([]string{"set", "pause", "no"}); err != nil {
		return fmt.Errorf("%w: unpause: %v", shared.ErrPlaybackLaunch, err)
	}
	return nil
}

// Pause implements [Process].
func (m *MPV) Pause() error {
	return m.handle.Command([]string{"set", "pause", "yes"})
}

// Resume implements [Process].
func (m *MPV) Resume() error {
	return m.handle.Command([]string{"set", "pause", "no"})
}

// Stop implements [Process].
func (m *MPV) Stop() error {
	return m.handle.Command([]string{"stop"})
}

// Seek implements [Process].
func (m *MPV) Seek(offset time.Duration) error {
	seconds := strconv.FormatFloat(offset.Seconds(), 'f', 3, 64)
	return m.handle.Command([]string{"seek", seconds, "absolute"})
}

// SetVolume implements [Process].
func (m *MPV) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume %d out of range", shared.ErrInvalidArgument, percent)
	}
	return m.handle.Command([]string{"set", "volume", strconv.Itoa(percent)})
}

// Events implements [Process].
func (m *MPV) Events() <-chan Event {
	return m.events
}

// Close implements [Process].
func (m *MPV) Close() error {
	m.cancel()
	m.handle.Command([]string{"quit"})
	m.handle.TerminateDestroy()
	return nil
}

// pump translates mpv's event loop into the [Event] stream. mpv serializes its
// events, so channel order matches emission order.
func (m *MPV) pump(ctx context.Context) {
	defer close(m.events)

	for {
		if ctx.Err() != nil {
			return
		}

		ev := m.handle.WaitEvent(1)
		if ev == nil {
			continue
		}

		switch ev.Event_Id {
		case mpv.EVENT_START_FILE:
			m.mu.Lock()
			m.active = m.pending
			m.stalled = false
			m.mu.Unlock()

		case mpv.EVENT_FILE_LOADED:
			m.emit(ctx, Event{Kind: EventStarted, TrackID: m.activeTrack()})

		case mpv.EVENT_END_FILE:
			m.emit(ctx, Event{Kind: EventFinished, TrackID: m.activeTrack()})

		case mpv.EVENT_PROPERTY_CHANGE:
			m.checkStall(ctx)

		case mpv.EVENT_SHUTDOWN:
			m.emit(ctx, Event{Kind: EventError, TrackID: m.activeTrack(), Err: fmt.Errorf("mpv shut down")})
			return
		}
	}
}

// checkStall polls paused-for-cache and emits stall/resume transitions.
func (m *MPV) checkStall(ctx context.Context) {
	val, err := m.handle.GetProperty("paused-for-cache", mpv.FORMAT_FLAG)
	if err != nil {
		return
	}
	buffering, ok := val.(bool)
	if !ok {
		return
	}

	m.mu.Lock()
	changed := buffering != m.stalled
	m.stalled = buffering
	track := m.active
	m.mu.Unlock()

	if !changed {
		return
	}
	if buffering {
		m.emit(ctx, Event{Kind: EventStalled, TrackID: track})
	} else {
		m.emit(ctx, Event{Kind: EventResumed, TrackID: track})
	}
}

func (m *MPV) activeTrack() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *MPV) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}
