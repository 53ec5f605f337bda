package event

import (
	"sort"
	"strings"
)

// wordOverlapThreshold is the similarity above which two same-date events
// are considered the same happening.
const wordOverlapThreshold = 0.7

// CollapseRecurring groups validated events by normalized name and keeps
// the chronologically earliest as canonical. Remaining dates become compact
// day labels on the canonical entry, with localDate rendered as "Today".
func CollapseRecurring(events []Event, localDate string) []Canonical {
	type cluster struct {
		first      Canonical
		extraDates []string
	}

	order := make([]string, 0, len(events))
	clusters := make(map[string]*cluster, len(events))

	for _, e := range events {
		key := NormalizedName(e.Name)
		existing, ok := clusters[key]
		if !ok {
			clusters[key] = &cluster{first: Canonical{Event: e}}
			order = append(order, key)
			continue
		}
		if e.Date < existing.first.Date {
			existing.extraDates = append(existing.extraDates, existing.first.Date)
			existing.first = Canonical{Event: e}
		} else if e.Date != existing.first.Date {
			existing.extraDates = append(existing.extraDates, e.Date)
		}
	}

	out := make([]Canonical, 0, len(order))
	for _, key := range order {
		c := clusters[key]
		sort.Strings(c.extraDates)
		seen := ""
		for _, date := range c.extraDates {
			if date == seen {
				continue
			}
			seen = date
			c.first.AlsoOn = append(c.first.AlsoOn, DayLabel(date, localDate))
		}
		out = append(out, c.first)
	}
	return out
}

// Merge folds incoming into accumulated, dropping incoming entries that
// duplicate an accumulated one. Two entries match when one name contains
// the other (case-insensitive) or when they share a date and their word
// overlap exceeds the similarity threshold.
//
// The first-seen entry's text is retained as canonical even when a later
// duplicate is more detailed; completeness never overrides arrival order.
func Merge(accumulated, incoming []Canonical) []Canonical {
	out := accumulated
	for _, candidate := range incoming {
		if isDuplicate(out, candidate) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func isDuplicate(existing []Canonical, candidate Canonical) bool {
	candidateName := NormalizedName(candidate.Name)
	candidateWords := significantWords(candidateName)
	for _, e := range existing {
		name := NormalizedName(e.Name)
		if strings.Contains(name, candidateName) || strings.Contains(candidateName, name) {
			return true
		}
		if e.Date != candidate.Date {
			continue
		}
		if wordOverlap(significantWords(name), candidateWords) > wordOverlapThreshold {
			return true
		}
	}
	return false
}

// significantWords returns the set of words longer than two characters.
func significantWords(normalizedName string) map[string]struct{} {
	words := strings.FieldsFunc(normalizedName, func(r rune) bool {
		return !isWordRune(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '-' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r > 127
}

// wordOverlap computes |shared| / min(|a|, |b|).
func wordOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	shared := 0
	for w := range smaller {
		if _, ok := larger[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(smaller))
}

// SortForDisplay orders canonical events for rendering: dates ascending,
// then timed entries ascending by time, untimed entries after all timed
// ones. The sort is stable so same-slot entries keep insertion order.
func SortForDisplay(events []Canonical) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		ti, tj := events[i].Time, events[j].Time
		if (ti == "") != (tj == "") {
			return ti != ""
		}
		return ti < tj
	})
}

// GroupByDate partitions display-sorted events into per-date groups,
// preserving order. Returned dates are ascending.
func GroupByDate(events []Canonical) (dates []string, groups map[string][]Canonical) {
	groups = make(map[string][]Canonical)
	for _, e := range events {
		if _, ok := groups[e.Date]; !ok {
			dates = append(dates, e.Date)
		}
		groups[e.Date] = append(groups[e.Date], e)
	}
	return dates, groups
}
