// Package remote defines the contract for the streaming service and provides the
// HTTP implementation of it.
//
// The [Client] interface is what the sync engine and playback controller consume:
// delta fetches against a per-class checkpoint and stream URL resolution for
// playback. Failures are distinguishable via the sentinel errors in
// internal/shared ([shared.ErrAuthExpired], [shared.ErrRateLimited],
// [shared.ErrNetwork], [shared.ErrNotFound]) so callers can pick the right
// recovery: re-authenticate, back off and retry, or surface the failure.
package remote
