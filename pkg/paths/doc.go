// Package paths resolves the directory layout srcpack works in: the
// per-instance artifact cache, the patches and extra-files directories a
// source is overlaid from, and the scratch directory pipeline runs use.
// Defaults follow the XDG Base Directory specification.
package paths
