// Package store wraps a Redis client with the small key/value surface the
// authentication engine needs: TTL-bound reads, writes, atomic set-if-absent,
// deletes, and fixed-window counters.
//
// Every operation runs under an explicit per-call timeout so a slow or
// partitioned Redis cannot stall a login request indefinitely. Backend
// failures are reported as [ErrUnavailable]; a missing key is [ErrNotFound].
//
// # What this package must NOT do
//
//   - Encode domain semantics (code lifetimes, revocation policy); callers own keys and TTLs.
//   - Swallow backend errors; availability policy is decided by the caller.
package store
