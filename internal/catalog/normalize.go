package catalog

import (
	"strings"
	"unicode"
)

// UnknownAuthor is used when a provider record has no author names.
const UnknownAuthor = "Unknown"

// JoinAuthors flattens a provider author list, defaulting to UnknownAuthor.
func JoinAuthors(authors []string) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if len(names) == 0 {
		return UnknownAuthor
	}
	return strings.Join(names, ", ")
}

// LeadingYear returns the first four-digit year of a date string
// such as "1965", "1965-08-01" or "1965?", or "" if there is none.
func LeadingYear(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	for _, r := range date[:4] {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	if len(date) > 4 && unicode.IsDigit(rune(date[4])) {
		return ""
	}
	return date[:4]
}

// SecureURL upgrades an insecure http:// URL to https://.
func SecureURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// CleanTitle returns the usable title of a provider record, or "" when
// the record must be dropped.
func CleanTitle(title string) string {
	return strings.TrimSpace(title)
}
