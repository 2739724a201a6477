// Package password implements password hashing and verification with PBKDF2-HMAC-SHA256.
//
// # Output format
//
// Hashes are encoded as two lowercase hex strings joined by a colon:
//
//	<hex salt>:<hex derived key>
//
// The colon can never appear inside either hex component, so the split is
// unambiguous. Iteration count and key length are not encoded; the [PBKDF2]
// hasher assumes one global [Config].
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// confirmation match) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other credstore package.
//   - Treat a malformed stored hash as a match.
package password
