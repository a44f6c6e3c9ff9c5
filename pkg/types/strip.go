package types

import (
	"fmt"
	"strconv"
	"strings"
)

// StripMode tags which form a StripLevels value was given in.
type StripMode uint8

const (
	// StripDisabled keeps archive paths as they are.
	StripDisabled StripMode = iota
	// StripDefaultOne removes the single wrapping directory most upstream
	// archives carry.
	StripDefaultOne
	// StripExplicit removes a caller-chosen number of components.
	StripExplicit
)

// StripLevels is the number of leading path components removed from
// archive entries. The descriptor accepts a boolean or an integer, so the
// value remembers which one it was built from.
type StripLevels struct {
	mode  StripMode
	count int
}

// NoStrip keeps archive paths intact.
func NoStrip() StripLevels { return StripLevels{mode: StripDisabled} }

// StripOne removes one leading directory.
func StripOne() StripLevels { return StripLevels{mode: StripDefaultOne, count: 1} }

// StripN removes n leading components. Negative values are clamped to zero.
func StripN(n int) StripLevels {
	if n < 0 {
		n = 0
	}
	return StripLevels{mode: StripExplicit, count: n}
}

// ParseStripLevels parses a SOURCE_IN_SUBDIR value: true, false or a
// non-negative integer. An empty value yields the default, StripOne.
func ParseStripLevels(value string) (StripLevels, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return StripOne(), nil
	case "true":
		return StripOne(), nil
	case "false":
		return NoStrip(), nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return StripLevels{}, fmt.Errorf("strip levels must be true, false or an integer, got %q", value)
	}
	if n < 0 {
		return StripLevels{}, fmt.Errorf("strip levels must not be negative, got %d", n)
	}
	return StripN(n), nil
}

// Mode returns the form the value was given in.
func (s StripLevels) Mode() StripMode { return s.mode }

// Count resolves the value to the number of components to drop.
func (s StripLevels) Count() int {
	switch s.mode {
	case StripDefaultOne:
		return 1
	case StripExplicit:
		return s.count
	default:
		return 0
	}
}

// Enabled reports whether any component is removed.
func (s StripLevels) Enabled() bool { return s.Count() > 0 }

func (s StripLevels) String() string {
	switch s.mode {
	case StripDefaultOne:
		return "true"
	case StripExplicit:
		return strconv.Itoa(s.count)
	default:
		return "false"
	}
}
