// Package refresh runs the external data collector that rewrites the local
// data file. The collector's merged stdout/stderr can be streamed to a caller
// line by line or captured for error reporting.
package refresh
