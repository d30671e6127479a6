// Package identity defines the contract scribe uses to talk to an identity
// authority: the external service that creates accounts, checks passwords,
// and issues the bearer tokens that pkg/auth later verifies.
//
// Two authorities are provided. firebase calls the Identity Toolkit REST API
// of a Firebase project. local keeps bcrypt password hashes in the document
// store and issues HS256 tokens itself, for development and tests.
package identity
