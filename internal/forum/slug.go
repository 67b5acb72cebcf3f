package forum

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Slugify converts s to a URL slug: NFKD-decomposed and reduced to ASCII,
// characters other than letters, digits, '_', '-' and whitespace dropped,
// lowercased, runs of whitespace or hyphens collapsed to a single '-', and
// leading or trailing '-' and '_' stripped.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(s)

	var kept strings.Builder
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			kept.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			kept.WriteRune(r + ('a' - 'A'))
		case r == '-', r == ' ', r == '\t', r == '\n', r == '\r', r == '\f', r == '\v':
			kept.WriteRune(r)
		}
	}

	var out strings.Builder
	pendingDash := false
	for _, r := range strings.TrimSpace(kept.String()) {
		if r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' {
			pendingDash = true
			continue
		}
		if pendingDash && out.Len() > 0 {
			out.WriteByte('-')
		}
		pendingDash = false
		out.WriteRune(r)
	}
	return strings.Trim(out.String(), "-_")
}

// splitTags parses comma-separated tag text into trimmed, non-empty titles,
// keeping the first spelling of each slug.
func splitTags(text string) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, raw := range strings.Split(text, ",") {
		title := strings.TrimSpace(raw)
		slug := Slugify(title)
		if title == "" || slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		titles = append(titles, title)
	}
	return titles
}
