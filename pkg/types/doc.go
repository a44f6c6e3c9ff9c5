// Package types defines the core types and interfaces shared by the
// source acquisition pipeline: the source descriptor with its closed
// format and checksum enums, the strip-levels tagged value, and the
// filesystem interface every component performs I/O through.
package types
