// Package api defines the wire types shared by the scribe HTTP surface:
// account and post records, request bodies, response envelopes, the
// structured APIError, post ID generation, and request validation.
//
// The package performs no I/O and depends only on the standard library.
//
// Core types:
//   - [Account]: per-user record created at registration
//   - [Post]: blog post owned by the principal that created it
//   - [APIError]: error with a type that maps to an HTTP status
package api
