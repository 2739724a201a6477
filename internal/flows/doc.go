// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRegister, RunSendVerificationCode, etc.)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. The Engine builds the dependency structs once at
// construction and delegates to them.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, session manager,
// credential repository, limiters, mailer, audit and metrics hooks. They do
// NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import credstore (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
//   - Log codes, tokens or passwords.
package flows
