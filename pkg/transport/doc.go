// Package transport defines the service contract and the HTTP middleware
// chain for the scribe blog API.
//
// The transport layer bridges HTTP clients and the blog service in
// pkg/blog. The HTTP adapter (pkg/transport/http) decodes request bodies into
// the types defined in pkg/api, dispatches them to a Service, and encodes the
// result or the *api.APIError that came back.
//
// # Service
//
// Service is declared here, by its consumer, and is satisfied by
// *blog.Service. Handlers never see the store or the identity authority.
//
// # Middleware
//
// Middleware has the net/http shape func(http.Handler) http.Handler so it
// plugs straight into the chi router. Built-in middleware provides panic
// recovery, request ID assignment (X-Request-ID), and an access log via
// log/slog. Authentication is opt-in per route and lives in pkg/auth.
//
// # Errors
//
// Every error response is JSON of the form
// {"error": "<message>", "type": "<type>", "param": "<field>"}, with the
// status derived from the error type by HTTPStatusFromError.
package transport
