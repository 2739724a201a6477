// Package internal holds the private building blocks of credstore.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators behind every Engine operation
//   - limiters: cooldown limiter over the rate-limit marker space
//   - stores: Redis, SQL and memory backends, migrations, credential repositories
package internal
