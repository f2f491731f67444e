package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/formatter"
	"github.com/wavelet-player/wavelet/internal/queue"
	"github.com/wavelet-player/wavelet/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
	_ list.Item = queueItem{}
)

// playlistItem wraps [catalog.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist catalog.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", len(i.playlist.TrackIDs))
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [formatter.TrackRow] to implement [list.Item].
type trackItem struct {
	track formatter.TrackRow
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return fmt.Sprintf("%s [%s]", desc, shared.FormatDuration(i.track.Duration))
}

// queueItem wraps a [queue.Entry] with its resolved title to implement [list.Item].
type queueItem struct {
	entry   queue.Entry
	title   string
	current bool
}

func (i queueItem) FilterValue() string { return i.title }
func (i queueItem) Title() string {
	if i.current {
		return "▶ " + i.title
	}
	return i.title
}
func (i queueItem) Description() string {
	return fmt.Sprintf("#%d", i.entry.Seq)
}
