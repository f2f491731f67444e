package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/formatter"
	"github.com/wavelet-player/wavelet/internal/shared"
)

// Search queries the cached catalog by title substring.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	stack, err := r.buildStack(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	tracks, err := stack.store.QueryTracks(catalog.TrackFilter{
		Title: query,
		Limit: int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		r.writePlain("No tracks match %q. Run 'wavelet sync' if the library is stale.\n", query)
		return nil
	}

	for _, track := range tracks {
		r.writePlain("%s  %-40s [%s]\n", track.ID, track.Title, shared.FormatDuration(track.Duration))
	}
	return nil
}

// Playlists lists the cached playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	stack, err := r.buildStack(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	playlists, err := stack.engine.Playlists()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists cached. Run 'wavelet sync' first.\n")
		return nil
	}

	for _, pl := range playlists {
		r.writePlain("%s  %-30s %d tracks\n", pl.ID, pl.Name, len(pl.TrackIDs))
	}
	return nil
}

// Export writes a playlist to disk in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	format := strings.ToLower(cmd.String("format"))
	outputPath := cmd.String("output")

	stack, err := r.buildStack(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	export, err := stack.engine.ExportPlaylist(playlistID)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s to %s and %s\n", export.Playlist.Name, result.TracksFile, result.MetadataFile)

	case "markdown", "md":
		file, err := formatter.WriteMarkdownExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s to %s\n", export.Playlist.Name, file)

	case "text", "txt":
		file, err := formatter.WriteTextExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s to %s\n", export.Playlist.Name, file)

	case "json":
		file, err := formatter.WriteJSONExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s to %s\n", export.Playlist.Name, file)

	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}

	return nil
}
