package inventory

import (
	"strings"

	"golang.org/x/text/cases"
)

// matcher performs case-insensitive substring search over the searchable
// product fields.
type matcher struct {
	needle string
	folder cases.Caser
}

func newMatcher(query string) matcher {
	m := matcher{folder: cases.Fold()}
	m.needle = m.folder.String(strings.TrimSpace(query))
	return m
}

func (m matcher) match(p Product) bool {
	if m.needle == "" {
		return true
	}
	for _, field := range [...]string{p.Name, p.Category, p.ProductCode} {
		if field == "" {
			continue
		}
		if strings.Contains(m.folder.String(field), m.needle) {
			return true
		}
	}
	return false
}

// equalFold compares two codes using Unicode case folding.
func equalFold(a, b string) bool {
	folder := cases.Fold()
	return folder.String(a) == folder.String(b)
}
