package catalog

// EntityClass identifies one of the syncable entity families. Checkpoints are
// tracked per class so syncs of different classes can proceed independently.
type EntityClass string

const (
	ClassTracks    EntityClass = "tracks"
	ClassAlbums    EntityClass = "albums"
	ClassArtists   EntityClass = "artists"
	ClassPlaylists EntityClass = "playlists"
)

// Classes lists every entity class in sync order. Artists and albums come before
// tracks so references resolve once a full sync completes.
func Classes() []EntityClass {
	return []EntityClass{ClassArtists, ClassAlbums, ClassTracks, ClassPlaylists}
}

// Checkpoint is an opaque, server-issued cursor marking sync progress for one
// entity class. The zero value means "never synced".
type Checkpoint string

// Track is the catalog mirror of a remote track. Remote-assigned IDs are stable;
// ETag changes whenever the remote record changes.
type Track struct {
	ID          string
	Title       string
	ArtistID    string
	AlbumID     string
	TrackNumber int
	Duration    int // seconds
	ETag        string
	StreamToken string // opaque resolver token, expires server-side
}

// Album is a read-only mirror of a remote album.
type Album struct {
	ID       string
	Name     string
	ArtistID string
	Year     int
	ETag     string
}

// Artist is a read-only mirror of a remote artist.
type Artist struct {
	ID   string
	Name string
	ETag string
}

// Playlist mirrors a remote playlist. Membership and ordering are mutable on the
// remote side and replaced wholesale on upsert.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackIDs    []string
	ETag        string
}

// Delta is one batch of changes for a single entity class, as returned by the
// remote service. Removed lists identifiers the remote reports as deleted.
type Delta struct {
	Class      EntityClass
	Tracks     []Track
	Albums     []Album
	Artists    []Artist
	Playlists  []Playlist
	Removed    []string
	Checkpoint Checkpoint
}

// Empty reports whether the delta carries no changes.
func (d Delta) Empty() bool {
	return len(d.Tracks) == 0 && len(d.Albums) == 0 && len(d.Artists) == 0 &&
		len(d.Playlists) == 0 && len(d.Removed) == 0
}

// Size returns the number of changed plus removed records in the delta.
func (d Delta) Size() int {
	return len(d.Tracks) + len(d.Albums) + len(d.Artists) + len(d.Playlists) + len(d.Removed)
}

// TrackFilter narrows [Store.QueryTracks] results. Zero-value fields are ignored.
type TrackFilter struct {
	Title    string // case-insensitive substring match
	ArtistID string
	AlbumID  string
	Limit    int
}
