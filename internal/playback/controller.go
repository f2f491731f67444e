// Package playback drives the audio process through the play queue.
//
// The [Controller] owns the queue, the playback state machine and the child
// player process. Queue transitions become player commands; player events become
// state transitions, consumed strictly in emission order by a single loop
// goroutine. Controllers are independent instances so tests can run several side
// by side; there is no package-level playback state.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wavelet-player/wavelet/internal/player"
	"github.com/wavelet-player/wavelet/internal/queue"
	"github.com/wavelet-player/wavelet/internal/remote"
	"github.com/wavelet-player/wavelet/internal/shared"
)

// StreamResolver is the slice of the remote client the controller needs.
type StreamResolver interface {
	ResolveStreamURL(ctx context.Context, trackID string) (*remote.StreamURL, error)
}

// Change is one state transition, published on [Controller.Changes].
type Change struct {
	State State
	Entry *queue.Entry // entry the transition concerns, nil for Idle
	Err   error        // failure reason when State is StateFailed
}

// Options configures a [Controller].
type Options struct {
	// StallTimeout bounds how long a stall may persist before the track fails.
	StallTimeout time.Duration
	Logger       *log.Logger
}

const defaultStallTimeout = 15 * time.Second

// Controller owns the playback state machine and the play queue.
type Controller struct {
	proc     player.Process
	resolver StreamResolver
	logger   *log.Logger

	stallTimeout time.Duration
	changes      chan Change

	mu         sync.Mutex
	state      State
	queue      *queue.Queue
	loadGen    uint64             // invalidates in-flight loads on stop/skip
	loadCancel context.CancelFunc // cancels in-flight URL resolution
	stallTimer *time.Timer
}

// New creates a controller over the given process and resolver. Call [Controller.Run]
// to start consuming player events.
func New(proc player.Process, resolver StreamResolver, opts Options) *Controller {
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = defaultStallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Controller{
		proc:         proc,
		resolver:     resolver,
		logger:       opts.Logger,
		stallTimeout: opts.StallTimeout,
		changes:      make(chan Change, 32),
		state:        StateIdle,
		queue:        queue.New(),
	}
}

// Run consumes the player's event stream until the context is cancelled or the
// stream closes. It must run in its own goroutine; all transitions triggered by
// player events happen here, in FIFO order.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.proc.Events():
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

// Changes returns the state transition stream.
func (c *Controller) Changes() <-chan Change {
	return c.changes
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the queue entry under the cursor.
func (c *Controller) Current() *queue.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Current()
}

// Entries returns a copy of the queue contents.
func (c *Controller) Entries() []queue.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Entries()
}

// Append adds tracks to the end of the queue.
func (c *Controller) Append(trackIDs ...string) []queue.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Append(trackIDs...)
}

// InsertNext places tracks immediately after the current entry.
func (c *Controller) InsertNext(trackIDs ...string) []queue.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.InsertNext(trackIDs...)
}

// Remove deletes a queue entry by sequence number. Removing the playing entry
// does not interrupt playback; the cursor moves per queue semantics.
func (c *Controller) Remove(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Remove(seq)
}

// ClearQueue empties the queue without touching the player.
func (c *Controller) ClearQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Clear()
}

// PlayEntry jumps the cursor to the entry with the given sequence number and
// starts loading it.
func (c *Controller) PlayEntry(ctx context.Context, seq uint64) error {
	c.mu.Lock()
	entry := c.queue.JumpTo(seq)
	if entry == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: queue entry %d", shared.ErrNotFound, seq)
	}
	c.startLoadLocked(ctx, *entry)
	c.mu.Unlock()
	return nil
}

// PlayNext advances the queue and starts loading the next entry. With no next
// entry the controller goes idle and PlayNext reports false.
func (c *Controller) PlayNext(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceLocked(ctx)
}

// Pause suspends playback. Only meaningful while playing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return nil
	}
	if err := c.proc.Pause(); err != nil {
		return err
	}
	c.setStateLocked(StatePaused, c.queue.Current(), nil)
	return nil
}

// Resume continues suspended playback.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return nil
	}
	if err := c.proc.Resume(); err != nil {
		return err
	}
	c.setStateLocked(StatePlaying, c.queue.Current(), nil)
	return nil
}

// Stop halts playback from any state and returns to Idle. An in-flight load is
// cancelled and its result ignored.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLoadLocked()
	c.stopStallTimerLocked()

	if err := c.proc.Stop(); err != nil {
		c.logger.Warn("player stop failed", "error", err)
	}
	c.setStateLocked(StateIdle, nil, nil)
	return nil
}

// Seek jumps to an absolute position in the playing track.
func (c *Controller) Seek(offset time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying && c.state != StatePaused {
		return fmt.Errorf("%w: cannot seek while %s", shared.ErrInvalidArgument, c.state)
	}
	return c.proc.Seek(offset)
}

// SetVolume sets the player output volume.
func (c *Controller) SetVolume(percent int) error {
	return c.proc.SetVolume(percent)
}

// advanceLocked moves the cursor forward and loads the entry there, or goes
// idle when the queue is exhausted.
func (c *Controller) advanceLocked(ctx context.Context) bool {
	entry := c.queue.Advance()
	if entry == nil {
		c.invalidateLoadLocked()
		c.setStateLocked(StateIdle, nil, nil)
		return false
	}
	c.startLoadLocked(ctx, *entry)
	return true
}

// startLoadLocked transitions to Loading and resolves the stream URL off the
// lock. The load generation guards against results arriving after a stop or
// skip invalidated them.
func (c *Controller) startLoadLocked(ctx context.Context, entry queue.Entry) {
	c.invalidateLoadLocked()
	c.stopStallTimerLocked()

	c.loadGen++
	gen := c.loadGen

	loadCtx, cancel := context.WithCancel(ctx)
	c.loadCancel = cancel

	c.setStateLocked(StateLoading, &entry, nil)

	go func() {
		defer cancel()

		stream, err := c.resolver.ResolveStreamURL(loadCtx, entry.TrackID)
		if err != nil {
			c.failLoad(gen, entry, fmt.Errorf("%w: %w", shared.ErrStreamResolution, err))
			return
		}
		if stream.Expired(time.Now()) {
			c.failLoad(gen, entry, fmt.Errorf("%w: %w: resolver token expired", shared.ErrStreamResolution, shared.ErrAuthExpired))
			return
		}

		// The lock is held across Load so a Stop cannot slip in between the
		// generation check and the player command.
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.loadGen {
			return
		}
		if err := c.proc.Load(stream.URL, entry.TrackID); err != nil {
			c.setStateLocked(StateFailed, &entry, fmt.Errorf("%w: %w", shared.ErrPlaybackLaunch, err))
			return
		}
		// Playing is entered when the process reports EventStarted.
	}()
}

// failLoad records a load failure unless the load was already invalidated.
func (c *Controller) failLoad(gen uint64, entry queue.Entry, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.loadGen {
		return
	}
	c.setStateLocked(StateFailed, &entry, err)
}

// handleEvent applies one player event to the state machine.
func (c *Controller) handleEvent(ev player.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.queue.Current()
	// Events for tracks the user already moved past are stale.
	if ev.TrackID != "" && (current == nil || current.TrackID != ev.TrackID) {
		c.logger.Debug("ignoring stale player event", "event", ev.Kind, "track", ev.TrackID)
		return
	}

	switch ev.Kind {
	case player.EventStarted:
		if c.state == StateLoading {
			c.setStateLocked(StatePlaying, current, nil)
		}

	case player.EventStalled:
		if c.state == StatePlaying || c.state == StatePaused {
			c.setStateLocked(StateStalled, current, nil)
			c.startStallTimerLocked(current)
		}

	case player.EventResumed:
		if c.state == StateStalled {
			c.stopStallTimerLocked()
			c.setStateLocked(StatePlaying, current, nil)
		}

	case player.EventFinished:
		if c.state != StatePlaying && c.state != StatePaused && c.state != StateStalled {
			return
		}
		c.stopStallTimerLocked()
		c.setStateLocked(StateFinished, current, nil)
		c.advanceLocked(context.Background())

	case player.EventError:
		if c.state == StateIdle {
			return
		}
		c.stopStallTimerLocked()
		c.invalidateLoadLocked()
		c.setStateLocked(StateFailed, current, fmt.Errorf("%w: %w", shared.ErrPlaybackLaunch, ev.Err))
	}
}

// startStallTimerLocked arms the stall deadline; expiry fails the track unless
// the stall recovered first.
func (c *Controller) startStallTimerLocked(entry *queue.Entry) {
	c.stopStallTimerLocked()
	c.stallTimer = time.AfterFunc(c.stallTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.state != StateStalled {
			return
		}
		if err := c.proc.Stop(); err != nil {
			c.logger.Warn("player stop after stall timeout failed", "error", err)
		}
		c.setStateLocked(StateFailed, entry, fmt.Errorf("%w: no recovery within %s", shared.ErrStallTimeout, c.stallTimeout))
	})
}

func (c *Controller) stopStallTimerLocked() {
	if c.stallTimer != nil {
		c.stallTimer.Stop()
		c.stallTimer = nil
	}
}

// invalidateLoadLocked cancels any in-flight load and bumps the generation so
// late results are dropped.
func (c *Controller) invalidateLoadLocked() {
	c.loadGen++
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
}

// setStateLocked records the transition and publishes it without blocking the
// state machine; a slow consumer drops intermediate transitions, never commands.
func (c *Controller) setStateLocked(state State, entry *queue.Entry, err error) {
	c.state = state

	change := Change{State: state, Entry: entry, Err: err}
	select {
	case c.changes <- change:
	default:
		c.logger.Warn("dropping playback change, consumer too slow", "state", state)
	}
}
