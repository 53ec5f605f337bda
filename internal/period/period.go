// Package period computes the deduplication unit for published artifacts:
// one calendar day in the neighborhood's local time.
package period

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for local calendar dates.
const DateLayout = "2006-01-02"

// Key is the publish-deduplication unit for one neighborhood and one local
// calendar day.
type Key string

// String returns the key in its storage form.
func (k Key) String() string { return string(k) }

// NeighborhoodID returns the neighborhood component of the key.
func (k Key) NeighborhoodID() string {
	id, _, _ := strings.Cut(string(k), ":")
	return id
}

// LocalDate returns the local-date component of the key.
func (k Key) LocalDate() string {
	_, date, _ := strings.Cut(string(k), ":")
	return date
}

// ForDate builds a key from a neighborhood id and a local calendar date.
func ForDate(neighborhoodID string, localDate string) Key {
	return Key(fmt.Sprintf("%s:%s", neighborhoodID, localDate))
}

// For computes the key for a neighborhood at the given instant, using the
// supplied IANA timezone. An unloadable timezone yields an error; callers
// that must not fail (the scheduler) handle it by exclusion.
func For(neighborhoodID, timezone string, now time.Time) (Key, error) {
	date, err := LocalDate(timezone, now)
	if err != nil {
		return "", err
	}
	return ForDate(neighborhoodID, date), nil
}

// LocalDate formats the instant as a calendar date in the given IANA
// timezone.
func LocalDate(timezone string, now time.Time) (string, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return now.In(loc).Format(DateLayout), nil
}

// LocalHour returns the hour of day [0,24) for the instant in the given
// IANA timezone.
func LocalHour(timezone string, now time.Time) (int, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return 0, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return now.In(loc).Hour(), nil
}
