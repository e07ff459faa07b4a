// Package objectstore provides object storage implementations.
//
// Implementations:
//   - minio: any S3-compatible endpoint via minio-go
//   - memory: In-memory bucket map that records calls, for testing
package objectstore
