// Package stores provides the storage contract behind every transient
// credential record (sessions, verification codes, rate-limit markers and
// verified-email markers) and its three variants: Redis, relational and
// in-process memory. It also holds the credential repositories and the
// embedded relational schema.
//
// # Design
//
// Each variant implements [Adapter]. Expiry is absolute and computed at write
// time. Redis delegates it to native key expiry; the SQL and memory variants
// compare a stored deadline on every read, so a record past its deadline is
// indistinguishable from one that never existed. Expired rows are never swept.
//
// Check-and-consume ([Adapter.ConsumeIfMatch]) is a single backend round trip
// on every variant: a Lua script on Redis, one conditional DELETE on SQL and a
// mutex-guarded compare-and-delete in memory.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT generate tokens or codes,
// decide rate-limit policy, or serialize session payloads beyond mapping the
// JSON form onto relational columns.
//
// # What this package must NOT do
//
//   - Import credstore or any sibling internal package.
//   - Log or expose plaintext secrets.
//   - Swallow backend errors: every I/O failure wraps ErrUnavailable.
package stores
