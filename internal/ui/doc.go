// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing and playing the library:
//  1. [PlaylistListView] : Browse cached playlists
//  2. [TrackListView] : Browse a playlist's tracks and start playback
//  3. [QueueView] : Inspect and edit the play queue
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Engine notifications flow through a channel into the update loop, so the status
// bar tracks sync progress and playback state without polling.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, space, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
