// Package session owns the session payload model, its JSON encoding, the
// session cookie format and the [Manager] that ties them together.
//
// # Cookie format
//
//	session=<64 hex chars>; HttpOnly; SameSite=Lax; Path=/; Max-Age=604800
//
// Max-Age follows the TTL the [Manager] was built with; 604800 is the default.
//
// Parsing is lenient: a header that cannot be parsed is treated as carrying no
// session rather than as an error, because cookie contents are attacker
// controlled.
//
// # Architecture boundaries
//
// This package does not talk to any backend. Persistence goes through the
// [Sessions] interface, which the root credstore.Store satisfies.
//
// # What this package must NOT do
//
//   - Import credstore or any internal package (no upward imports).
//   - Fail a request because of a malformed cookie.
package session
