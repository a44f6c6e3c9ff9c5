// Package filesystem provides filesystem implementations for srcpack.
//
// This package contains implementations of the types.FS interface, the
// standard OS filesystem and an afero-backed one, plus the archive-semantics
// tree copy used by the extractor and the overlay step.
package filesystem
