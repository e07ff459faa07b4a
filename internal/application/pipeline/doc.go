// Package pipeline implements the trigger state machine.
//
// A trigger moves through validating, refreshing, plotting, uploading_data and
// uploading_plot, ending in done or failed. The runner:
//   - Validates the request before any file or network I/O
//   - Serializes triggers on the local data file through the trigger lock
//   - Runs the collector, then the publisher, only after a zero exit
//   - Records every transition in the trigger record store and in metrics
package pipeline
