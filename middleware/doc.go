// Package middleware adapts the session lifecycle manager to net/http.
//
//   - [Session] loads the session cookie into the request context.
//   - [RequireRole] guards a role's area and redirects everyone else.
//   - [ClientIP] feeds the per-IP send-code cooldown.
//
// Decisions about who a user is are made by session.Manager; this package
// only translates them into HTTP responses.
package middleware
