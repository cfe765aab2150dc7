// Package format provides the built-in store formatters.
//
// Both render the store data of one channel as JSON and address it with gjson paths whose
// first segment is the source namespace ("timer.t1.elapsed").
package format
