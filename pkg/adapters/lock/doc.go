// Package lock provides trigger lock implementations. A trigger holds the
// lock for its local data file path from refresh until it finishes, so two
// triggers never interleave writes to the shared files.
//
// Implementations:
//   - redis: SET NX lease shared by every replica using the same Redis
//   - memory: per-key semaphore for a single process
package lock
