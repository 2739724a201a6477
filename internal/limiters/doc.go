// Package limiters provides domain-specific rate limiters built on top of the
// credential store's presence markers.
//
// # Limiters
//
//   - [CooldownLimiter] - one action per identifier (and optionally per IP)
//     per cooldown window. Used for verification-code sends and
//     password-reset requests.
//
// A nil *CooldownLimiter admits everything.
//
// # Architecture boundaries
//
// Limiters only read and write markers through [Markers]; they never see the
// backend. Policy thresholds come from Config structs supplied at
// construction time.
//
// # What this package must NOT do
//
//   - Import credstore or any sibling internal package.
//   - Make policy decisions beyond admission - flow functions decide consequences.
package limiters
