package formatting

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrParseFailed is returned when a value cannot be parsed in any known layout.
var ErrParseFailed = errors.New("failed to parse value")

// dateLayouts are tried in order. External services emit dates in a handful
// of formats; ISO forms come first since they are the most common.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// ParseDate parses a date string against the known layouts.
// Returns ErrParseFailed if no layout matches.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrParseFailed)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrParseFailed, s)
}

// CollapseWhitespace replaces runs of whitespace with single spaces and trims
// the result.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
