// Package filex provides filename helpers for user-supplied uploads.
package filex

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxBaseNameLen = 100

var (
	fileSafeRe    = regexp.MustCompile(`[^A-Za-z0-9._\- ]+`)
	leadingDotsRe = regexp.MustCompile(`^\.+`)
)

// CleanFileName reduces an arbitrary user-supplied filename to a safe
// ASCII display name: path components and control characters are stripped,
// accents are folded, the remainder is restricted to a conservative
// character set and capped in length. The extension is preserved.
// A name that sanitizes to nothing becomes "file".
func CleanFileName(original string) string {
	s := strings.TrimSpace(original)
	s = strings.ReplaceAll(s, "\\", "/")
	s = path.Base(s)

	if s == "." || s == ".." || s == "" {
		return "file"
	}

	s = strings.Map(func(r rune) rune {
		if r == '\x00' || r < 0x20 {
			return -1
		}
		return r
	}, s)

	// fold accents: NFD, drop combining marks, NFC
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)

	s = leadingDotsRe.ReplaceAllString(s, "")

	ext := strings.ToLower(path.Ext(s))
	base := strings.TrimSuffix(s, ext)

	base = fileSafeRe.ReplaceAllString(base, "-")
	base = strings.Trim(base, "- .")

	if len(base) > maxBaseNameLen {
		base = base[:maxBaseNameLen]
	}
	if base == "" {
		base = "file"
	}

	if ext != "" {
		ext = fileSafeRe.ReplaceAllString(ext, "")
	}

	return base + ext
}
