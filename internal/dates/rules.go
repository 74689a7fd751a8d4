// Package dates implements the day-precision date rules shared by the
// inventory, alert and import components.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is the expiring-soon horizon in days.
const DefaultWindow = 15

// Layout is the canonical DD.MM.YYYY layout used for display.
const Layout = "02.01.2006"

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Rules parses and classifies product dates. A single Rules value should be
// shared by every component so the same text is always classified the same way.
type Rules struct {
	// AllowISOFallback accepts ISO-8601 text when strict DD.MM.YYYY parsing fails.
	AllowISOFallback bool
	// Window is the expiring-soon horizon in days. Zero means DefaultWindow.
	Window int
	// Location anchors "today". Nil means time.Local.
	Location *time.Location
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// New returns Rules with the default window.
func New(allowISOFallback bool) Rules {
	return Rules{AllowISOFallback: allowISOFallback, Window: DefaultWindow}
}

func (r Rules) location() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.Local
}

func (r Rules) window() int {
	if r.Window > 0 {
		return r.Window
	}
	return DefaultWindow
}

// Today returns the current calendar day at midnight in the rules location.
func (r Rules) Today() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	return truncate(now.In(r.location()))
}

// Parse reads text as DD.MM.YYYY, falling back to ISO-8601 when enabled.
// The boolean is false for empty or unparseable text.
func (r Rules) Parse(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if t, ok := parseStrict(text, r.location()); ok {
		return t, true
	}
	if !r.AllowISOFallback {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, text, r.location()); err == nil {
			return truncate(t.In(r.location())), true
		}
	}
	return time.Time{}, false
}

func parseStrict(text string, loc *time.Location) (time.Time, bool) {
	parts := strings.Split(text, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	if len(parts[2]) != 4 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalises 31.02 into March; reject instead of rolling over.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// DaysUntil returns the number of calendar days from today to the date in
// text. Negative values are in the past.
func (r Rules) DaysUntil(text string) (int, bool) {
	t, ok := r.Parse(text)
	if !ok {
		return 0, false
	}
	return daysBetween(r.Today(), t), true
}

// IsExpired reports whether text is a parseable date on or before today.
// An item expiring today counts as expired.
func (r Rules) IsExpired(text string) bool {
	days, ok := r.DaysUntil(text)
	return ok && days <= 0
}

// IsExpiringSoon reports whether text falls within (today, today+window].
func (r Rules) IsExpiringSoon(text string) bool {
	days, ok := r.DaysUntil(text)
	return ok && days > 0 && days <= r.window()
}

// FormatForDisplay renders a parseable date as zero-padded DD.MM.YYYY and
// returns any other input unchanged.
func (r Rules) FormatForDisplay(text string) string {
	t, ok := r.Parse(text)
	if !ok {
		return text
	}
	return t.Format(Layout)
}

// Format renders t as DD.MM.YYYY.
func Format(t time.Time) string {
	return fmt.Sprintf("%02d.%02d.%04d", t.Day(), int(t.Month()), t.Year())
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days using UTC civil dates so DST shifts
// never produce fractional days.
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
