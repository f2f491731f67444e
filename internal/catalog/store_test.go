package catalog

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/wavelet-player/wavelet/internal/shared"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(db), db
}

func trackDelta(tracks ...Track) Delta {
	return Delta{Class: ClassTracks, Tracks: tracks, Checkpoint: "c1"}
}

func TestApplyUpsertsByIdentifier(t *testing.T) {
	store, _ := newTestStore(t)

	delta := trackDelta(
		Track{ID: "t1", Title: "First", Duration: 180, ETag: "e1"},
		Track{ID: "t2", Title: "Second", Duration: 200, ETag: "e1"},
	)
	if err := store.Apply(delta); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got, err := store.GetTrack("t1")
	if err != nil {
		t.Fatalf("GetTrack() error = %v", err)
	}
	if got.Title != "First" || got.Duration != 180 {
		t.Errorf("GetTrack() = %+v, want title First duration 180", got)
	}

	// Changed etag rewrites the row, same identifier.
	update := trackDelta(Track{ID: "t1", Title: "First (Remaster)", Duration: 181, ETag: "e2"})
	if err := store.Apply(update); err != nil {
		t.Fatalf("Apply() update error = %v", err)
	}

	got, err = store.GetTrack("t1")
	if err != nil {
		t.Fatalf("GetTrack() after update error = %v", err)
	}
	if got.Title != "First (Remaster)" || got.ETag != "e2" {
		t.Errorf("GetTrack() after update = %+v, want remastered title and etag e2", got)
	}

	tracks, err := store.QueryTracks(TrackFilter{})
	if err != nil {
		t.Fatalf("QueryTracks() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("QueryTracks() returned %d tracks, want 2 (no duplicates)", len(tracks))
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	delta := Delta{
		Class: ClassTracks,
		Tracks: []Track{
			{ID: "t1", Title: "Alpha", ETag: "e1", StreamToken: "tok1"},
			{ID: "t2", Title: "Beta", ETag: "e1", StreamToken: "tok2"},
		},
		Artists:    []Artist{{ID: "a1", Name: "Someone", ETag: "e1"}},
		Checkpoint: "c1",
	}

	if err := store.Apply(delta); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	first, err := store.QueryTracks(TrackFilter{})
	if err != nil {
		t.Fatalf("QueryTracks() error = %v", err)
	}

	if err := store.Apply(delta); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	second, err := store.QueryTracks(TrackFilter{})
	if err != nil {
		t.Fatalf("QueryTracks() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("store state changed on second apply:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestApplySameETagDoesNotOverwrite(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Apply(trackDelta(Track{ID: "t1", Title: "Original", ETag: "e1"})); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// Same etag with different fields is treated as an unchanged record.
	if err := store.Apply(trackDelta(Track{ID: "t1", Title: "Mangled", ETag: "e1"})); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got, err := store.GetTrack("t1")
	if err != nil {
		t.Fatalf("GetTrack() error = %v", err)
	}
	if got.Title != "Original" {
		t.Errorf("GetTrack().Title = %q, want Original (etag unchanged)", got.Title)
	}
}

func TestApplyRemovesReportedEntities(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Apply(trackDelta(
		Track{ID: "t1", Title: "Keep", ETag: "e1"},
		Track{ID: "t2", Title: "Drop", ETag: "e1"},
	)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := store.Apply(Delta{Class: ClassTracks, Removed: []string{"t2"}, Checkpoint: "c2"}); err != nil {
		t.Fatalf("Apply() removal error = %v", err)
	}

	if _, err := store.GetTrack("t2"); !errors.Is(err, shared.ErrTrackNotFound) {
		t.Errorf("GetTrack(t2) error = %v, want ErrTrackNotFound", err)
	}
	if _, err := store.GetTrack("t1"); err != nil {
		t.Errorf("GetTrack(t1) error = %v, want nil", err)
	}
}

func TestPlaylistMembershipReplacedOnUpsert(t *testing.T) {
	store, _ := newTestStore(t)

	delta := Delta{
		Class: ClassPlaylists,
		Playlists: []Playlist{
			{ID: "p1", Name: "Road Trip", TrackIDs: []string{"t1", "t2", "t3"}, ETag: "e1"},
		},
		Checkpoint: "c1",
	}
	if err := store.Apply(delta); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	reordered := Delta{
		Class: ClassPlaylists,
		Playlists: []Playlist{
			{ID: "p1", Name: "Road Trip", TrackIDs: []string{"t3", "t1"}, ETag: "e2"},
		},
		Checkpoint: "c2",
	}
	if err := store.Apply(reordered); err != nil {
		t.Fatalf("Apply() reorder error = %v", err)
	}

	got, err := store.GetPlaylist("p1")
	if err != nil {
		t.Fatalf("GetPlaylist() error = %v", err)
	}
	want := []string{"t3", "t1"}
	if !reflect.DeepEqual(got.TrackIDs, want) {
		t.Errorf("GetPlaylist().TrackIDs = %v, want %v", got.TrackIDs, want)
	}
}

func TestQueryTracksFilters(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Apply(trackDelta(
		Track{ID: "t1", Title: "Blue Monday", ArtistID: "a1", AlbumID: "al1", ETag: "e1"},
		Track{ID: "t2", Title: "Blue Train", ArtistID: "a2", AlbumID: "al2", ETag: "e1"},
		Track{ID: "t3", Title: "Green Onions", ArtistID: "a1", AlbumID: "al1", ETag: "e1"},
	)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tc := []struct {
		name    string
		filter  TrackFilter
		wantIDs []string
	}{
		{"title substring", TrackFilter{Title: "blue"}, []string{"t1", "t2"}},
		{"artist", TrackFilter{ArtistID: "a1"}, []string{"t1", "t3"}},
		{"artist and title", TrackFilter{ArtistID: "a1", Title: "green"}, []string{"t3"}},
		{"limit", TrackFilter{Limit: 1}, []string{"t1"}},
		{"no match", TrackFilter{Title: "purple"}, nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			tracks, err := store.QueryTracks(tt.filter)
			if err != nil {
				t.Fatalf("QueryTracks() error = %v", err)
			}
			var ids []string
			for _, track := range tracks {
				ids = append(ids, track.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("QueryTracks() ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	store, _ := newTestStore(t)

	cp, err := store.Checkpoint(ClassTracks)
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if cp != "" {
		t.Errorf("Checkpoint() on fresh store = %q, want empty", cp)
	}

	if err := store.AdvanceCheckpoint(ClassTracks, "c1"); err != nil {
		t.Fatalf("AdvanceCheckpoint() error = %v", err)
	}
	if err := store.AdvanceCheckpoint(ClassTracks, "c2"); err != nil {
		t.Fatalf("AdvanceCheckpoint() error = %v", err)
	}

	cp, err = store.Checkpoint(ClassTracks)
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if cp != "c2" {
		t.Errorf("Checkpoint() = %q, want c2", cp)
	}

	// Checkpoints are per entity class.
	cp, err = store.Checkpoint(ClassAlbums)
	if err != nil {
		t.Fatalf("Checkpoint(albums) error = %v", err)
	}
	if cp != "" {
		t.Errorf("Checkpoint(albums) = %q, want empty", cp)
	}
}

func TestAdvanceCheckpointRejectsEmptyCursor(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.AdvanceCheckpoint(ClassTracks, ""); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("AdvanceCheckpoint(\"\") error = %v, want ErrInvalidArgument", err)
	}
}

func TestResetClearsCatalogAndCheckpoints(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Apply(trackDelta(Track{ID: "t1", Title: "Gone", ETag: "e1"})); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := store.AdvanceCheckpoint(ClassTracks, "c1"); err != nil {
		t.Fatalf("AdvanceCheckpoint() error = %v", err)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if _, err := store.GetTrack("t1"); !errors.Is(err, shared.ErrTrackNotFound) {
		t.Errorf("GetTrack() after reset error = %v, want ErrTrackNotFound", err)
	}
	cp, err := store.Checkpoint(ClassTracks)
	if err != nil {
		t.Fatalf("Checkpoint() after reset error = %v", err)
	}
	if cp != "" {
		t.Errorf("Checkpoint() after reset = %q, want empty", cp)
	}
}

func TestCountsPerClass(t *testing.T) {
	store, _ := newTestStore(t)

	delta := Delta{
		Class:      ClassTracks,
		Tracks:     []Track{{ID: "t1", ETag: "e1"}, {ID: "t2", ETag: "e1"}},
		Artists:    []Artist{{ID: "a1", ETag: "e1"}},
		Checkpoint: "c1",
	}
	if err := store.Apply(delta); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	counts, err := store.Counts()
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts[ClassTracks] != 2 || counts[ClassArtists] != 1 || counts[ClassAlbums] != 0 {
		t.Errorf("Counts() = %v, want 2 tracks, 1 artist, 0 albums", counts)
	}
}
