package util

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
var unsafePathSegmentChars = regexp.MustCompile(`[<>:"/\\|?*]+`)

// SafeFilename reduces an attachment's original name to something that can be
// written on any filesystem we care about.
func SafeFilename(name string) string {
	if name == "" {
		return "file"
	}
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// SanitizePathSegment replaces characters invalid on Windows/macOS/Linux file
// systems. Used for display names that become part of an output path.
func SanitizePathSegment(value string) string {
	if value == "" {
		return "file"
	}
	cleaned := unsafePathSegmentChars.ReplaceAllString(value, "_")
	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

func HasAnyPrefix(val string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(val, prefix) {
			return true
		}
	}
	return false
}
