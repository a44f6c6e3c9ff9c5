package types

// DefaultSourceID is the source id used when the caller does not give one.
const DefaultSourceID = "app"

// SourceDescriptor describes where one upstream artifact comes from and how
// it is unpacked. It is built once per pipeline run and not modified after.
type SourceDescriptor struct {
	// SourceID names the source; it keys patches and extra files.
	SourceID string

	// URL is the remote location. Empty when only a cached file is used.
	URL string

	// Checksum is the expected hex digest of the artifact.
	Checksum  string
	Algorithm ChecksumAlgorithm

	// Format is the container format. RawFormat keeps the descriptor
	// spelling so an unknown value can be reported verbatim.
	Format    Format
	RawFormat string

	// Extract is false for artifacts that are the deliverable themselves.
	Extract bool

	Strip StripLevels

	// Filename is the artifact's name in the cache and work directories.
	Filename string
}
