// Package logtail reads the kanjidex log file for the logs command.
//
// Read returns the last N lines of a file with a ring buffer, so memory use
// is bounded by N rather than the file size. Parse and Format turn the JSON
// lines written by the zap production encoder back into one readable line
// each; Render does both and drops entries below a minimum level.
//
// A missing log file reads as empty, since nothing has been logged yet.
package logtail
