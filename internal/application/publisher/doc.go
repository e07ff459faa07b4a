// Package publisher implements the artifact publishing steps of a trigger:
// rendering the plot from the local data file and uploading local files to
// the configured bucket, creating the bucket on first use.
package publisher
