// Package testutil provides utilities for testing srcpack components.
//
// Key components:
//   - Archive builders: tar (plain, gzip, xz, zstd, lz4) and zip archives
//     assembled in memory from a list of Entry values
//   - Tree helpers: WriteFile for fixtures and SnapshotTree for comparing
//     extracted directories by content, mode and link target
//
// All test data should be defined inline, not in external files.
package testutil
