package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/wavelet-player/wavelet/internal/engine"
	"github.com/wavelet-player/wavelet/internal/playback"
	"github.com/wavelet-player/wavelet/internal/shared"
)

// Play starts playback of a track or playlist and blocks until the queue is
// exhausted or playback fails.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track or playlist id", shared.ErrMissingArgument)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stack, err := r.buildStack(ctx, true)
	if err != nil {
		return err
	}
	defer stack.close()

	if cmd.Bool("playlist") {
		err = stack.engine.PlayPlaylist(ctx, id)
	} else {
		err = stack.engine.PlayNow(ctx, id)
	}
	if err != nil {
		return err
	}

	return r.watchPlayback(ctx, stack.engine.Notifications())
}

// watchPlayback prints playback notifications until the queue is exhausted.
// Track failures are not terminal while the engine auto-skips; the last one is
// reported only when the session ends without anything having played since.
func (r *Runner) watchPlayback(ctx context.Context, notes <-chan engine.Notification) error {
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case note := <-notes:
			switch note.Kind {
			case engine.NoteError:
				r.writePlain("✗ %s\n", note.Message)
				if note.Err != nil {
					lastErr = note.Err
				}

			case engine.NotePlaybackState:
				r.writePlain("%s\n", note.Message)
				switch note.State {
				case playback.StatePlaying:
					lastErr = nil
				case playback.StateIdle:
					// The queue advanced past its last entry.
					return lastErr
				}
			}
		}
	}
}
