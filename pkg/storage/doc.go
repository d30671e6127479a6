// Package storage holds what the document store adapters (memory,
// postgres, sqlite) share: sentinel errors and the post listing order.
//
// Adapters implement blog.Store, defined by its consumer in pkg/blog, and
// local.CredentialStore from pkg/identity/local.
package storage
