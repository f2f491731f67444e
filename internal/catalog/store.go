package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wavelet-player/wavelet/internal/shared"
)

// Store implements the catalog cache on top of a SQLite database opened with
// [shared.NewDatabase] and migrated with [shared.RunMigrations].
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Apply upserts every entity in the delta and deletes entities the remote reports
// as removed, all in one transaction. Applying the same delta twice is a no-op
// after the first: rows are only rewritten when the incoming ETag differs.
//
// Apply never touches the delta's checkpoint; advancing it is the caller's
// responsibility once the write is durable.
func (s *Store) Apply(delta Delta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	for _, artist := range delta.Artists {
		if err := upsertArtist(tx, artist); err != nil {
			return storeErr("upsert artist", err)
		}
	}
	for _, album := range delta.Albums {
		if err := upsertAlbum(tx, album); err != nil {
			return storeErr("upsert album", err)
		}
	}
	for _, track := range delta.Tracks {
		if err := upsertTrack(tx, track); err != nil {
			return storeErr("upsert track", err)
		}
	}
	for _, playlist := range delta.Playlists {
		if err := upsertPlaylist(tx, playlist); err != nil {
			return storeErr("upsert playlist", err)
		}
	}

	if len(delta.Removed) > 0 {
		if err := removeEntities(tx, delta.Class, delta.Removed); err != nil {
			return storeErr("remove entities", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}

	return nil
}

func upsertTrack(tx *sql.Tx, t Track) error {
	_, err := tx.Exec(`
		INSERT INTO tracks (id, title, artist_id, album_id, track_number, duration, etag, stream_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist_id = excluded.artist_id,
			album_id = excluded.album_id,
			track_number = excluded.track_number,
			duration = excluded.duration,
			etag = excluded.etag,
			stream_token = excluded.stream_token,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.etag <> tracks.etag
	`, t.ID, t.Title, t.ArtistID, t.AlbumID, t.TrackNumber, t.Duration, t.ETag, t.StreamToken)
	return err
}

func upsertAlbum(tx *sql.Tx, a Album) error {
	_, err := tx.Exec(`
		INSERT INTO albums (id, name, artist_id, year, etag)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			artist_id = excluded.artist_id,
			year = excluded.year,
			etag = excluded.etag,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.etag <> albums.etag
	`, a.ID, a.Name, a.ArtistID, a.Year, a.ETag)
	return err
}

func upsertArtist(tx *sql.Tx, a Artist) error {
	_, err := tx.Exec(`
		INSERT INTO artists (id, name, etag)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			etag = excluded.etag,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.etag <> artists.etag
	`, a.ID, a.Name, a.ETag)
	return err
}

// upsertPlaylist replaces playlist membership wholesale when the etag differs.
// Ordering is authoritative from the remote, so positions are rewritten.
func upsertPlaylist(tx *sql.Tx, p Playlist) error {
	var existingETag string
	err := tx.QueryRow("SELECT etag FROM playlists WHERE id = ?", p.ID).Scan(&existingETag)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil && existingETag == p.ETag {
		return nil
	}

	_, err = tx.Exec(`
		INSERT INTO playlists (id, name, description, etag)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			etag = excluded.etag,
			updated_at = CURRENT_TIMESTAMP
	`, p.ID, p.Name, p.Description, p.ETag)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", p.ID); err != nil {
		return err
	}
	for i, trackID := range p.TrackIDs {
		_, err := tx.Exec(
			"INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)",
			p.ID, trackID, i,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func removeEntities(tx *sql.Tx, class EntityClass, ids []string) error {
	table, ok := map[EntityClass]string{
		ClassTracks:    "tracks",
		ClassAlbums:    "albums",
		ClassArtists:   "artists",
		ClassPlaylists: "playlists",
	}[class]
	if !ok {
		return fmt.Errorf("unknown entity class %q", class)
	}

	for _, id := range ids {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE id = ?", id); err != nil {
			return err
		}
		if class == ClassPlaylists {
			if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", id); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetTrack retrieves a track by its remote identifier.
func (s *Store) GetTrack(id string) (*Track, error) {
	var t Track
	err := s.db.QueryRow(`
		SELECT id, title, artist_id, album_id, track_number, duration, etag, stream_token
		FROM tracks WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.ArtistID, &t.AlbumID, &t.TrackNumber, &t.Duration, &t.ETag, &t.StreamToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, storeErr("get track", err)
	}
	return &t, nil
}

// GetPlaylist retrieves a playlist with its ordered track identifiers.
func (s *Store) GetPlaylist(id string) (*Playlist, error) {
	var p Playlist
	err := s.db.QueryRow(
		"SELECT id, name, description, etag FROM playlists WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.ETag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, storeErr("get playlist", err)
	}

	rows, err := s.db.Query(
		"SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position", id,
	)
	if err != nil {
		return nil, storeErr("get playlist tracks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID string
		if err := rows.Scan(&trackID); err != nil {
			return nil, storeErr("scan playlist track", err)
		}
		p.TrackIDs = append(p.TrackIDs, trackID)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate playlist tracks", err)
	}

	return &p, nil
}

// QueryTracks returns tracks matching the filter, ordered by title.
func (s *Store) QueryTracks(filter TrackFilter) ([]Track, error) {
	query := `
		SELECT id, title, artist_id, album_id, track_number, duration, etag, stream_token
		FROM tracks
	`
	var conds []string
	var args []any

	if filter.Title != "" {
		conds = append(conds, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.ArtistID != "" {
		conds = append(conds, "artist_id = ?")
		args = append(args, filter.ArtistID)
	}
	if filter.AlbumID != "" {
		conds = append(conds, "album_id = ?")
		args = append(args, filter.AlbumID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY title"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storeErr("query tracks", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.Title, &t.ArtistID, &t.AlbumID, &t.TrackNumber, &t.Duration, &t.ETag, &t.StreamToken); err != nil {
			return nil, storeErr("scan track", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate tracks", err)
	}

	return tracks, nil
}

// ListAlbums returns every cached album ordered by name.
func (s *Store) ListAlbums() ([]Album, error) {
	rows, err := s.db.Query("SELECT id, name, artist_id, year, etag FROM albums ORDER BY name")
	if err != nil {
		return nil, storeErr("list albums", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.ID, &a.Name, &a.ArtistID, &a.Year, &a.ETag); err != nil {
			return nil, storeErr("scan album", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// ListArtists returns every cached artist ordered by name.
func (s *Store) ListArtists() ([]Artist, error) {
	rows, err := s.db.Query("SELECT id, name, etag FROM artists ORDER BY name")
	if err != nil {
		return nil, storeErr("list artists", err)
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.ETag); err != nil {
			return nil, storeErr("scan artist", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// ListPlaylists returns every cached playlist without membership, ordered by name.
func (s *Store) ListPlaylists() ([]Playlist, error) {
	rows, err := s.db.Query("SELECT id, name, description, etag FROM playlists ORDER BY name")
	if err != nil {
		return nil, storeErr("list playlists", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ETag); err != nil {
			return nil, storeErr("scan playlist", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// Checkpoint returns the stored sync cursor for the entity class, or the zero
// checkpoint when the class has never been synced.
func (s *Store) Checkpoint(class EntityClass) (Checkpoint, error) {
	var cursor string
	err := s.db.QueryRow(
		"SELECT cursor FROM checkpoints WHERE entity_class = ?", string(class),
	).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("read checkpoint", err)
	}
	return Checkpoint(cursor), nil
}

// AdvanceCheckpoint persists a new cursor for the entity class. Callers must only
// advance after the matching delta has been durably applied; a failed sync leaves
// the prior checkpoint intact.
func (s *Store) AdvanceCheckpoint(class EntityClass, cursor Checkpoint) error {
	if cursor == "" {
		return fmt.Errorf("%w: empty checkpoint cursor", shared.ErrInvalidArgument)
	}

	_, err := s.db.Exec(`
		INSERT INTO checkpoints (entity_class, cursor)
		VALUES (?, ?)
		ON CONFLICT(entity_class) DO UPDATE SET
			cursor = excluded.cursor,
			advanced_at = CURRENT_TIMESTAMP
	`, string(class), string(cursor))
	if err != nil {
		return storeErr("advance checkpoint", err)
	}
	return nil
}

// Reset clears all catalog content and checkpoints. Used to recover from a
// corrupt store before a full resync.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("begin reset", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"playlist_tracks", "playlists", "tracks", "albums", "artists", "checkpoints"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return storeErr("reset "+table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit reset", err)
	}
	return nil
}

// Verify checks the underlying database for corruption.
func (s *Store) Verify() error {
	return shared.CheckIntegrity(s.db)
}

// Counts returns the number of cached entities per class, keyed by class name.
func (s *Store) Counts() (map[EntityClass]int, error) {
	counts := make(map[EntityClass]int, 4)
	for class, table := range map[EntityClass]string{
		ClassTracks:    "tracks",
		ClassAlbums:    "albums",
		ClassArtists:   "artists",
		ClassPlaylists: "playlists",
	} {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, storeErr("count "+table, err)
		}
		counts[class] = n
	}
	return counts, nil
}

// storeErr wraps low-level database failures as corrupt-store errors so callers
// can distinguish "rebuild the cache" from remote or input failures.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", shared.ErrCorruptStore, op, err)
}
