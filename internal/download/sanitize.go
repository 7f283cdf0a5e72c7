package download

import (
	"path/filepath"
	"strings"
)

// invalidRunes are the characters rejected by at least one of the
// filesystems the output tree may land on (NTFS being the strictest).
const invalidRunes = `<>:"|?*\`

// reservedNames are device names Windows refuses as path components.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// sanitizePath rewrites every component of path so the result is valid on
// any common filesystem: invalid and control characters become "_",
// trailing dots and spaces are trimmed, and Windows device names get an
// underscore appended.
func sanitizePath(path string) string {
	root := ""
	if filepath.IsAbs(path) {
		root = string(filepath.Separator)
	}

	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, sanitizeComponent(part))
	}
	return root + strings.Join(out, string(filepath.Separator))
}

func sanitizeComponent(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidRunes, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimRight(b.String(), ". ")
	if cleaned == "" {
		return "_"
	}

	stem := cleaned
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		stem = cleaned[:dot]
	}
	if reservedNames[strings.ToUpper(stem)] {
		return cleaned + "_"
	}
	return cleaned
}
