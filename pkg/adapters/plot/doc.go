// Package plot renders the collector's CSV output to an SVG chart of solve
// times over date, one line per weekday.
package plot
