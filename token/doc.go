// Package token signs and verifies self-contained session credentials with a
// fixed time-to-live.
//
// # Design
//
// A credential is a compact JWS carrying subject id, issued-at, expires-at,
// and a random credential id. Verification is CPU-bound and allocation-light;
// it never touches the network. Signature integrity is checked before any
// time field is inspected, so tampered input is always reported as malformed,
// never as expired.
//
// # Architecture boundaries
//
// This package owns credential encoding only. Revocation state lives in the
// ledger package; orchestration lives in the sessiongate root package.
//
// # What this package must NOT do
//
//   - Perform I/O or consult any store.
//   - Decide whether a structurally valid credential is still honored.
package token
