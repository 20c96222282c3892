// Package middleware exposes the HTTP adapter for sessiongate.Gate
// authentication.
//
// [Guard] reads the Authorization header, runs Gate.Authenticate, and either
// injects the admission into the request context or writes the denial as a
// 401/403 JSON body of the shape {"error": "<reason-specific message>"}.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gate calls. It does NOT
// implement authentication logic itself — every decision is delegated to
// Gate.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create credentials directly (delegates to the Gate).
//   - Access Redis (the Gate handles I/O).
//   - Distinguish store faults from authentication failures in responses;
//     the fail-closed mapping is the Gate's contract.
package middleware
