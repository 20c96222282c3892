// Package ledger is the shared, durable revocation store that lets a
// stateless credential be voided before its natural expiry.
//
// # Design
//
// One Redis keyspace serves two logical indexes:
//
//   - exact-credential revocation entries, keyed by the SHA-256 of the
//     credential string, written with a Redis TTL equal to the credential's
//     own remaining lifetime — an entry never needs to outlive the
//     credential it revokes, so pruning is mostly free;
//   - a per-subject cutoff timestamp ("any credential for this subject
//     issued before T is void"), raised monotonically via a Lua
//     compare-and-set so concurrent password changes can only move it
//     forward.
//
// A per-subject index set makes entries enumerable for audit views; the
// sweep reconciles it against entries Redis has already expired.
//
// # Consistency
//
// Once Revoke or MarkPasswordChanged returns nil, every read that starts
// afterwards observes the write. A read that started before the write
// completed may still admit the credential; revocation stops the *next*
// request, it is not a kill-switch for requests already past the check.
//
// # What this package must NOT do
//
//   - Parse or verify credentials (that is the token package).
//   - Decide HTTP semantics or user-facing messages.
package ledger
