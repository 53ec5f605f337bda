package event

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the calendar-date format events carry on the wire.
const DateLayout = "2006-01-02"

// Event is one structured happening extracted from a single source.
// Date and Name are mandatory; everything else is optional display detail.
type Event struct {
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Venue    string `json:"venue,omitempty"`
	Address  string `json:"address,omitempty"`
	Price    string `json:"price,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Valid reports whether the event carries the mandatory fields.
func (e Event) Valid() bool {
	if strings.TrimSpace(e.Name) == "" {
		return false
	}
	date := strings.TrimSpace(e.Date)
	if date == "" {
		return false
	}
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// Canonical is the single representative retained for a cluster of
// duplicate or recurring events, plus the labels of any further dates the
// same happening occurs on.
type Canonical struct {
	Event
	AlsoOn []string
}

// NormalizedName returns the comparison key used for recurring collapse
// and dedup: Unicode-normalized, trimmed, lowercased.
func NormalizedName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// Validate drops events missing a date or a name and trims the survivors'
// mandatory fields. Order is preserved.
func Validate(events []Event) []Event {
	kept := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.Valid() {
			continue
		}
		e.Name = strings.TrimSpace(e.Name)
		e.Date = strings.TrimSpace(e.Date)
		kept = append(kept, e)
	}
	return kept
}

// DayLabel renders a date as a compact day label for "also on" annotations.
// The caller's local date renders as "Today".
func DayLabel(date, localDate string) string {
	if date == localDate {
		return "Today"
	}
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return parsed.Format("Mon Jan 2")
}
