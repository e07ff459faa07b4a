// Package domain holds the trigger types shared by every layer: the request,
// the pipeline states, the persisted trigger record and the error taxonomy
// (validation, process, stage failures).
package domain
