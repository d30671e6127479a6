// Package auth provides pluggable bearer-token authentication for scribe.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (principal found), No (credentials
// invalid), or Abstain (can't handle). When every authenticator abstains the
// request is rejected.
//
// Auth is implemented as HTTP middleware that routes opt into, keeping it
// decoupled from the blog operations. Handlers read the caller with
// PrincipalFromContext.
package auth
