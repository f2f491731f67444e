// Package engine composes the catalog, sync engine and playback controller into
// the operations the UI calls.
//
// The [Engine] is the single point where internal error kinds become user-facing
// notifications: every terminal failure produces exactly one [Notification],
// transient retrying states produce a degraded status instead of an error. Sync
// retries with bounded exponential backoff happen here, never inside the sync
// engine itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/formatter"
	"github.com/wavelet-player/wavelet/internal/playback"
	"github.com/wavelet-player/wavelet/internal/queue"
	"github.com/wavelet-player/wavelet/internal/shared"
	"github.com/wavelet-player/wavelet/internal/syncer"
)

// Synchronizer is the slice of the sync engine the facade drives.
type Synchronizer interface {
	SyncAll(ctx context.Context) ([]syncer.Result, error)
	Rebuild(ctx context.Context) ([]syncer.Result, error)
}

// Opts configures a new [Engine].
type Opts struct {
	Store      *catalog.Store
	Syncer     Synchronizer
	Controller *playback.Controller
	Logger     *log.Logger

	// Sync holds the retry policy; zero values fall back to defaults.
	Sync shared.SyncConfig

	// AutoSkip advances to the next queue entry when a track fails. The failure
	// is still reported either way.
	AutoSkip bool
}

// Engine is the facade the UI talks to.
type Engine struct {
	store      *catalog.Store
	syncer     Synchronizer
	controller *playback.Controller
	logger     *log.Logger

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
	autoSkip    bool

	notes chan Notification
}

// New creates an engine facade. Call [Engine.Run] to start forwarding playback
// changes as notifications.
func New(opts Opts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	maxAttempts := opts.Sync.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	backoffBase := opts.Sync.BackoffBase()
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}
	backoffCap := opts.Sync.BackoffCap()
	if backoffCap <= 0 {
		backoffCap = 8 * time.Second
	}

	return &Engine{
		store:       opts.Store,
		syncer:      opts.Syncer,
		controller:  opts.Controller,
		logger:      opts.Logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
		autoSkip:    opts.AutoSkip,
		notes:       make(chan Notification, 64),
	}
}

// Run forwards playback state changes to the notification stream and applies
// the auto-skip policy on per-track failures. It returns when the context is
// cancelled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-e.controller.Changes():
			if !ok {
				return
			}
			e.handleChange(ctx, change)
		}
	}
}

func (e *Engine) handleChange(ctx context.Context, change playback.Change) {
	if change.State == playback.StateFailed {
		track := ""
		if change.Entry != nil {
			track = change.Entry.TrackID
		}
		e.logger.Error("track failed", "track", track, "error", change.Err)
		e.notify(errorNote("Track failed: "+track, change.Err))

		if e.autoSkip {
			if e.controller.PlayNext(ctx) {
				e.logger.Info("auto-skipping to next queue entry")
			}
		}
		return
	}

	e.notify(playbackNote(change))
}

// Notifications returns the user-facing event stream.
func (e *Engine) Notifications() <-chan Notification {
	return e.notes
}

// Search queries the local catalog by title substring. It never touches the
// network; an unsynced catalog simply returns no results.
func (e *Engine) Search(query string) ([]catalog.Track, error) {
	return e.store.QueryTracks(catalog.TrackFilter{Title: query})
}

// Track returns one catalog track by id.
func (e *Engine) Track(id string) (*catalog.Track, error) {
	return e.store.GetTrack(id)
}

// Playlists lists the cached playlists.
func (e *Engine) Playlists() ([]catalog.Playlist, error) {
	return e.store.ListPlaylists()
}

// PlaylistTracks returns a playlist's tracks in playlist order. Track ids the
// catalog no longer holds are skipped.
func (e *Engine) PlaylistTracks(playlistID string) ([]catalog.Track, error) {
	playlist, err := e.store.GetPlaylist(playlistID)
	if err != nil {
		return nil, err
	}

	tracks := make([]catalog.Track, 0, len(playlist.TrackIDs))
	for _, id := range playlist.TrackIDs {
		track, err := e.store.GetTrack(id)
		if err != nil {
			if errors.Is(err, shared.ErrTrackNotFound) {
				e.logger.Warn("playlist references missing track", "playlist", playlistID, "track", id)
				continue
			}
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, nil
}

// ExportPlaylist assembles a playlist export with artist and album references
// resolved to names.
func (e *Engine) ExportPlaylist(playlistID string) (*formatter.PlaylistExport, error) {
	playlist, err := e.store.GetPlaylist(playlistID)
	if err != nil {
		return nil, err
	}
	tracks, err := e.PlaylistTracks(playlistID)
	if err != nil {
		return nil, err
	}
	artists, err := e.store.ListArtists()
	if err != nil {
		return nil, err
	}
	albums, err := e.store.ListAlbums()
	if err != nil {
		return nil, err
	}
	return formatter.BuildExport(*playlist, tracks, artists, albums), nil
}

// PlayNow appends the track to the queue and starts playing it immediately.
func (e *Engine) PlayNow(ctx context.Context, trackID string) error {
	if _, err := e.store.GetTrack(trackID); err != nil {
		return err
	}

	entries := e.controller.Append(trackID)
	return e.controller.PlayEntry(ctx, entries[0].Seq)
}

// PlayPlaylist replaces the queue with the playlist's tracks and starts playback.
func (e *Engine) PlayPlaylist(ctx context.Context, playlistID string) error {
	playlist, err := e.store.GetPlaylist(playlistID)
	if err != nil {
		return err
	}
	if len(playlist.TrackIDs) == 0 {
		return fmt.Errorf("%w: playlist %s is empty", shared.ErrInvalidArgument, playlistID)
	}

	e.controller.Stop()
	e.controller.ClearQueue()
	entries := e.controller.Append(playlist.TrackIDs...)
	return e.controller.PlayEntry(ctx, entries[0].Seq)
}

// Enqueue appends tracks to the play queue.
func (e *Engine) Enqueue(trackIDs ...string) []queue.Entry {
	return e.controller.Append(trackIDs...)
}

// EnqueueNext inserts tracks right after the current entry.
func (e *Engine) EnqueueNext(trackIDs ...string) []queue.Entry {
	return e.controller.InsertNext(trackIDs...)
}

// RemoveFromQueue removes one queue entry by sequence number.
func (e *Engine) RemoveFromQueue(seq uint64) {
	e.controller.Remove(seq)
}

// Queue returns a copy of the play queue.
func (e *Engine) Queue() []queue.Entry {
	return e.controller.Entries()
}

// NowPlaying returns the current queue entry and playback state.
func (e *Engine) NowPlaying() (*queue.Entry, playback.State) {
	return e.controller.Current(), e.controller.State()
}

// Skip advances to the next queue entry.
func (e *Engine) Skip(ctx context.Context) bool {
	return e.controller.PlayNext(ctx)
}

// Pause suspends playback.
func (e *Engine) Pause() error { return e.controller.Pause() }

// Resume continues playback.
func (e *Engine) Resume() error { return e.controller.Resume() }

// Stop halts playback and returns to idle.
func (e *Engine) Stop() error { return e.controller.Stop() }

// Seek jumps to an absolute position in the current track.
func (e *Engine) Seek(offset time.Duration) error { return e.controller.Seek(offset) }

// SetVolume sets the player volume in percent.
func (e *Engine) SetVolume(percent int) error { return e.controller.SetVolume(percent) }

// SyncNow reconciles the catalog with the remote service, retrying transient
// failures with exponential backoff up to the configured attempt cap. Auth
// failures are surfaced immediately, never retried. A corrupt store triggers a
// reset and full resync.
func (e *Engine) SyncNow(ctx context.Context) error {
	e.notify(syncStartedNote())

	var lastErr error
	delay := e.backoffBase

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		results, err := e.syncer.SyncAll(ctx)
		if err == nil {
			records := 0
			for _, r := range results {
				records += r.Records
			}
			e.notify(syncCompleteNote(records))
			return nil
		}
		lastErr = err

		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err

		case errors.Is(err, shared.ErrAuthExpired):
			e.notify(errorNote("Authentication expired, please sign in again", err))
			return err

		case errors.Is(err, shared.ErrCorruptStore):
			e.logger.Warn("catalog corrupt, rebuilding", "error", err)
			results, rebuildErr := e.syncer.Rebuild(ctx)
			if rebuildErr != nil {
				e.notify(errorNote("Library rebuild failed", rebuildErr))
				return rebuildErr
			}
			records := 0
			for _, r := range results {
				records += r.Records
			}
			e.notify(syncCompleteNote(records))
			return nil

		case errors.Is(err, shared.ErrNetwork) || errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrTimeout):
			if attempt == e.maxAttempts {
				break
			}
			e.logger.Warn("sync attempt failed, backing off",
				"attempt", attempt, "max", e.maxAttempts, "delay", delay, "error", err)
			e.notify(syncDegradedNote(attempt, e.maxAttempts, err))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = min(delay*2, e.backoffCap)

		default:
			e.notify(errorNote("Library sync failed", err))
			return err
		}
	}

	e.notify(errorNote("Library sync failed", lastErr))
	return lastErr
}

// RebuildNow discards every checkpoint and cached record, then performs a full
// resync of all classes. Unlike [Engine.SyncNow] it never retries; callers use
// it for explicit "start over" requests.
func (e *Engine) RebuildNow(ctx context.Context) error {
	e.notify(syncStartedNote())

	results, err := e.syncer.Rebuild(ctx)
	if err != nil {
		e.notify(errorNote("Library rebuild failed", err))
		return err
	}

	records := 0
	for _, r := range results {
		records += r.Records
	}
	e.notify(syncCompleteNote(records))
	return nil
}

// Counts reports the number of cached entities per class.
func (e *Engine) Counts() (map[catalog.EntityClass]int, error) {
	return e.store.Counts()
}

// notify publishes without blocking engine operations.
func (e *Engine) notify(note Notification) {
	select {
	case e.notes <- note:
	default:
		e.logger.Warn("dropping notification, consumer too slow", "kind", note.Kind)
	}
}
