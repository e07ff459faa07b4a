// Package records provides trigger record storage implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory for a single replica and for testing
package records
