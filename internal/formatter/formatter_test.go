package formatter

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/wavelet-player/wavelet/internal/catalog"
)

func sampleExport() *PlaylistExport {
	playlist := catalog.Playlist{
		ID:          "pl1",
		Name:        "Evening Mix",
		Description: "Wind-down tracks",
		TrackIDs:    []string{"track1", "track2", "missing"},
	}
	tracks := []catalog.Track{
		{ID: "track1", Title: "Song One", ArtistID: "ar1", AlbumID: "al1", Duration: 180},
		{ID: "track2", Title: "Song Two", ArtistID: "ar2", Duration: 240},
	}
	artists := []catalog.Artist{
		{ID: "ar1", Name: "Artist One"},
		{ID: "ar2", Name: "Artist Two"},
	}
	albums := []catalog.Album{
		{ID: "al1", Name: "Album One", ArtistID: "ar1"},
	}
	return BuildExport(playlist, tracks, artists, albums)
}

func TestBuildExport(t *testing.T) {
	export := sampleExport()

	if len(export.Tracks) != 2 {
		t.Fatalf("expected 2 resolved tracks, got %d", len(export.Tracks))
	}
	if export.Tracks[0].Artist != "Artist One" {
		t.Errorf("expected artist name resolved, got %q", export.Tracks[0].Artist)
	}
	if export.Tracks[0].Album != "Album One" {
		t.Errorf("expected album name resolved, got %q", export.Tracks[0].Album)
	}
	if export.Tracks[1].Album != "" {
		t.Errorf("expected blank album for unresolved reference, got %q", export.Tracks[1].Album)
	}
}

func TestExporters(t *testing.T) {
	export := sampleExport()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "ID,Title,Artist,Album,Duration") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1,Song One,Artist One,Album One,180") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, "track2,Song Two,Artist Two,,240") {
			t.Errorf("CSV missing track2 row, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(export)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# Evening Mix") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "**Description**: Wind-down tracks") {
			t.Errorf("Markdown missing description")
		}
		if !strings.Contains(output, "**Tracks**: 2") {
			t.Errorf("Markdown missing track count")
		}
		if !strings.Contains(output, "## Tracks") {
			t.Errorf("Markdown missing tracks section")
		}
		if !strings.Contains(output, "1. Artist One - Song One (Album One) [3:00]") {
			t.Errorf("Markdown missing track1, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two - Song Two [4:00]") {
			t.Errorf("Markdown missing track2 (no album)")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(export)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Playlist: Evening Mix") {
			t.Errorf("Text missing playlist name")
		}
		if !strings.Contains(output, "Tracks: 2") {
			t.Errorf("Text missing track count")
		}
		if !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("Text missing track1")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(export)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, `"pl1"`) {
			t.Errorf("JSON missing playlist ID")
		}
		if !strings.Contains(output, `"Song One"`) {
			t.Errorf("JSON missing track title")
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(export.Playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, `"Evening Mix"`) {
			t.Errorf("JSON missing playlist name")
		}
		if strings.Contains(output, `"track1"`) {
			t.Errorf("metadata JSON should not contain track ids")
		}
	})
}

func TestWriters(t *testing.T) {
	export := sampleExport()

	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "evening")

		result, err := WriteCSVExport(export, base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		if result.TracksFile != base+"_tracks.csv" {
			t.Errorf("unexpected tracks file %s", result.TracksFile)
		}
		if result.MetadataFile != base+"_metadata.json" {
			t.Errorf("unexpected metadata file %s", result.MetadataFile)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "evening")

		mdFile, err := WriteMarkdownExport(export, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if mdFile != dir+"/README.md" {
			t.Errorf("unexpected markdown file %s", mdFile)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mix.txt")

		out, err := WriteTextExport(export, path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if out != path {
			t.Errorf("unexpected text file %s", out)
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mix.json")

		out, err := WriteJSONExport(export, path)
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		if out != path {
			t.Errorf("unexpected JSON file %s", out)
		}
	})
}
