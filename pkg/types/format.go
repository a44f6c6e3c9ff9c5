package types

import (
	"fmt"
	"strings"
)

// Format identifies the container format of a source artifact. The set is
// closed: anything the descriptor names that is not listed here parses to
// FormatUnknown and is rejected when extraction is attempted.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTarBz2
	FormatTarXz
	FormatZip
	FormatNone
	FormatTar
	FormatTarZst
	FormatTarLz4
)

// DefaultFormat is used when a descriptor does not name one.
const DefaultFormat = FormatTarGz

// Strategy is the extraction mechanism associated with a Format.
type Strategy uint8

const (
	// StrategyUnsupported means the format cannot be extracted.
	StrategyUnsupported Strategy = iota
	// StrategyRaw places the artifact in the destination unchanged.
	StrategyRaw
	// StrategyZip unpacks a zip archive, staging it when stripping.
	StrategyZip
	// StrategyTar streams a (possibly compressed) tar archive with native
	// strip-components support.
	StrategyTar
)

var formatNames = map[Format]string{
	FormatTarGz:  "tar.gz",
	FormatTarBz2: "tar.bz2",
	FormatTarXz:  "tar.xz",
	FormatZip:    "zip",
	FormatNone:   "none",
	FormatTar:    "tar",
	FormatTarZst: "tar.zst",
	FormatTarLz4: "tar.lz4",
}

var formatAliases = map[string]Format{
	"tgz":  FormatTarGz,
	"tbz2": FormatTarBz2,
	"tbz":  FormatTarBz2,
	"txz":  FormatTarXz,
	"tzst": FormatTarZst,
}

// ParseFormat maps a descriptor value to a Format, case-insensitively.
// Unrecognized names return FormatUnknown; the caller decides when that
// becomes an error.
func ParseFormat(name string) Format {
	lower := strings.ToLower(strings.TrimSpace(name))
	for format, formatName := range formatNames {
		if formatName == lower {
			return format
		}
	}
	if format, ok := formatAliases[lower]; ok {
		return format
	}
	return FormatUnknown
}

// String returns the canonical descriptor spelling of the format.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(f))
}

// Known reports whether the format is a member of the closed set.
func (f Format) Known() bool {
	_, ok := formatNames[f]
	return ok
}

// Strategy returns the extraction mechanism for the format.
func (f Format) Strategy() Strategy {
	switch f {
	case FormatTarGz, FormatTarBz2, FormatTarXz, FormatTar, FormatTarZst, FormatTarLz4:
		return StrategyTar
	case FormatZip:
		return StrategyZip
	case FormatNone:
		return StrategyRaw
	default:
		return StrategyUnsupported
	}
}
