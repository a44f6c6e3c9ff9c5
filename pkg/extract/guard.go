package extract

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/srcpack/pkg/errors"
)

// stripComponents drops the first n components of an archive member name.
// Empty and "." components do not count. The result is "" when nothing is
// left. ".." is kept so that safeJoin can reject it.
func stripComponents(name string, n int) string {
	var parts []string
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) <= n {
		return ""
	}
	return strings.Join(parts[n:], "/")
}

// safeJoin resolves an archive member name below destDir and fails if the
// result lies outside it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.ErrExtraction, "archive entry %q escapes %s", name, destDir).
			WithDetail("entry", name)
	}
	return target, nil
}
