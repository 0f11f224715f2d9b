package util

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidFileName is returned for names that cannot be stored safely.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName removes path separators and control characters and
// rejects names with a "." or ".." path segment.
func SanitizeFileName(name string) (string, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	for _, seg := range strings.FieldsFunc(s, isPathSeparator) {
		if seg = strings.TrimSpace(seg); seg == "." || seg == ".." {
			return "", ErrInvalidFileName
		}
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

func isPathSeparator(r rune) bool { return r == '/' || r == '\\' }
