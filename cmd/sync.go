package main

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/engine"
)

// Sync reconciles the local catalog with the remote service, printing progress
// notifications as they arrive.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	stack, err := r.buildStack(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	go func() {
		for {
			select {
			case note := <-stack.engine.Notifications():
				switch note.Kind {
				case engine.NoteError:
					r.writePlain("✗ %s\n", note.Message)
				case engine.NoteSyncComplete:
					r.writePlain("✓ %s\n", note.Message)
				default:
					r.writePlain("%s\n", note.Message)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if cmd.Bool("rebuild") {
		err = stack.engine.RebuildNow(ctx)
	} else {
		err = stack.engine.SyncNow(ctx)
	}
	if err != nil {
		return err
	}

	counts, err := stack.engine.Counts()
	if err != nil {
		return err
	}

	r.writePlainln("Library contents:")
	for _, class := range catalog.Classes() {
		r.writePlain("  %-10s %d\n", class, counts[class])
	}
	return nil
}
