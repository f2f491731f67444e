// Package syncer reconciles the local catalog against the remote service.
//
// The core abstraction is [Engine], which fetches per-class deltas from the
// remote client and applies them to the catalog store. The checkpoint for a class
// only advances after every upsert of its delta committed, so a crash mid-sync
// never skips records: the next incremental sync re-fetches from the old
// checkpoint and the idempotent upserts absorb the replay.
//
// The engine does not retry. Remote failures propagate typed so the caller can
// pick a retry policy; re-issuing a sync is always safe. Syncs of the same entity
// class are serialized, different classes may run concurrently.
package syncer
