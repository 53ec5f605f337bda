package event

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateHeader renders the display heading for one date group. The caller's
// local date is highlighted as "Today".
func DateHeader(date, localDate string) string {
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	if date == localDate {
		return parsed.Format("Today, Monday January 2")
	}
	return parsed.Format("Monday, January 2")
}

// FormatLine renders one canonical event as
// "Name; Category, Time; Venue, Address; Price." with empty optional
// segments omitted. The address is cleaned against the neighborhood's city
// before rendering.
func FormatLine(e Canonical, city string) string {
	name := strings.TrimSpace(e.Name)
	if len(e.AlsoOn) > 0 {
		name = fmt.Sprintf("%s (also on %s)", name, strings.Join(e.AlsoOn, ", "))
	}

	segments := []string{name}
	if s := joinNonEmpty(e.Category, e.Time); s != "" {
		segments = append(segments, s)
	}
	if s := joinNonEmpty(e.Venue, CleanAddress(e.Address, city)); s != "" {
		segments = append(segments, s)
	}
	if price := strings.TrimSpace(e.Price); price != "" {
		segments = append(segments, price)
	}
	return strings.Join(segments, "; ") + "."
}

// Digest renders the full per-date digest for display-sorted events.
func Digest(events []Canonical, localDate, city string) string {
	dates, groups := GroupByDate(events)
	var b strings.Builder
	for i, date := range dates {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(DateHeader(date, localDate))
		b.WriteString("\n")
		for _, e := range groups[date] {
			b.WriteString(FormatLine(e, city))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// CleanAddress strips a trailing postal-code-plus-city suffix or a bare
// trailing city name from an address, matching against the neighborhood's
// known city string. "Main St 12, 114 39 Stockholm" with city "Stockholm"
// becomes "Main St 12".
func CleanAddress(address, city string) string {
	address = strings.TrimSpace(address)
	city = strings.TrimSpace(city)
	if address == "" || city == "" {
		return address
	}
	if strings.EqualFold(address, city) {
		return ""
	}

	quoted := regexp.QuoteMeta(city)
	postal := regexp.MustCompile(`(?i)[,\s]*\d{2,3}\s?\d{2,3}\s+` + quoted + `$`)
	bare := regexp.MustCompile(`(?i)[,\s]+` + quoted + `$`)

	cleaned := postal.ReplaceAllString(address, "")
	cleaned = bare.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimRight(strings.TrimSpace(cleaned), ",")
	if cleaned == "" {
		// Address was only the city; nothing useful remains.
		return ""
	}
	return cleaned
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
