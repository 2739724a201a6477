// Package credstore is the credential store and account-flow engine of the
// journal submission system.
//
// A [Builder] selects exactly one storage backend at startup (Redis, then a
// relational database, then an in-process map) and returns an [Engine]. The
// Engine's [Store] keeps four kinds of short-lived state behind one facade:
// sessions, email verification codes, rate-limit markers and verified-email
// markers. Long-lived accounts live in a credential.Repository.
//
// # Backend selection
//
// The choice is made once in Build and never changes. A backend failure is
// returned to the caller wrapped in [ErrBackendUnavailable]; it never causes
// a switch to another backend. Falling back to memory is logged as a warning
// and reported by [Store.Capabilities] with Durable == false.
//
// # Absence
//
// Never-set, deleted, expired and undecodable records all read as absent:
// nil or false with a nil error.
//
// # Concurrency
//
// Engine and Store are safe for concurrent use. Atomic single-use semantics
// (verification codes, reset tokens) come from single backend operations,
// not from locks held across requests.
package credstore
