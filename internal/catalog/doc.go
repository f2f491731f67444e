// Package catalog owns the local mirror of the remote music library.
//
// The [Store] persists tracks, albums, artists and playlists in SQLite together
// with a per-entity-class sync checkpoint. Writes happen exclusively through
// [Store.Apply], which upserts a [Delta] by identifier: applying the same delta
// twice leaves the store unchanged after the first application. Reads never touch
// the network.
//
// Corruption of the underlying database is surfaced as [shared.ErrCorruptStore];
// callers recover by calling [Store.Reset] and performing a full resync instead of
// crashing.
package catalog
