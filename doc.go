// Package sessiongate issues and validates short-lived, self-contained
// session credentials with pre-expiry revocation. A signed stateless
// credential cannot be unsigned, so the package layers a shared Redis
// revocation ledger on top of stateless verification: logout and
// administrative action revoke one exact credential, a password change
// voids every credential issued before it via a per-subject cutoff.
//
// The package is designed for concurrent server workloads: Gate methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Gate], [Builder], [Config],
// the [Denial] result type, and the audit/metrics value types. Credential
// signing lives in token/, the Redis revocation and cutoff store in
// ledger/, and the HTTP boundary in middleware/.
//
// # What this package must NOT do
//
//   - Store bearer credentials verbatim anywhere; the ledger keys on a hash.
//   - Admit a request when the ledger cannot be queried (fail-closed).
//   - Surface a taxonomy failure as anything but a typed *Denial.
//   - Run sweep maintenance in the request path.
//
// # Performance contract
//
// Authenticate is the hot path: one signature verification plus one
// pipelined Redis round-trip for the revocation and cutoff lookups, then
// one provider call. Revocation writes are one Redis transaction.
package sessiongate
