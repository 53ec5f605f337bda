package event

import (
	"reflect"
	"testing"
)

func TestValidateDropsIncomplete(t *testing.T) {
	events := []Event{
		{Name: "Jazz Night", Date: "2025-03-01"},
		{Name: "", Date: "2025-03-01"},
		{Name: "No Date"},
		{Name: "Bad Date", Date: "March 1st"},
		{Name: "  Spaced  ", Date: " 2025-03-02 "},
	}
	kept := Validate(events)
	if len(kept) != 2 {
		t.Fatalf("kept %d events, want 2: %+v", len(kept), kept)
	}
	if kept[1].Name != "Spaced" || kept[1].Date != "2025-03-02" {
		t.Fatalf("mandatory fields not trimmed: %+v", kept[1])
	}
}

func TestCollapseRecurring(t *testing.T) {
	events := []Event{
		{Name: "Gallery X", Date: "2025-03-02"},
		{Name: "gallery x", Date: "2025-03-01"},
		{Name: "GALLERY X", Date: "2025-03-03"},
		{Name: "Other Show", Date: "2025-03-02"},
	}
	collapsed := CollapseRecurring(events, "2025-03-01")
	if len(collapsed) != 2 {
		t.Fatalf("collapsed to %d entries, want 2: %+v", len(collapsed), collapsed)
	}
	gallery := collapsed[0]
	if gallery.Date != "2025-03-01" {
		t.Fatalf("canonical date = %q, want earliest 2025-03-01", gallery.Date)
	}
	want := []string{"Sun Mar 2", "Mon Mar 3"}
	if !reflect.DeepEqual(gallery.AlsoOn, want) {
		t.Fatalf("also-on labels = %v, want %v", gallery.AlsoOn, want)
	}
}

func TestCollapseRecurringTodayLabel(t *testing.T) {
	events := []Event{
		{Name: "Market", Date: "2025-02-28"},
		{Name: "Market", Date: "2025-03-01"},
	}
	collapsed := CollapseRecurring(events, "2025-03-01")
	if len(collapsed) != 1 {
		t.Fatalf("collapsed to %d entries, want 1", len(collapsed))
	}
	if !reflect.DeepEqual(collapsed[0].AlsoOn, []string{"Today"}) {
		t.Fatalf("also-on = %v, want [Today]", collapsed[0].AlsoOn)
	}
}

func TestMergeSubstringDuplicate(t *testing.T) {
	a := []Canonical{{Event: Event{Name: "Jazz Night", Date: "2025-03-01", Time: "19:00", Source: "citysearch"}}}
	b := []Canonical{{Event: Event{Name: "jazz night at blue room", Date: "2025-03-01", Source: "pulse"}}}

	merged := Merge(a, b)
	if len(merged) != 1 {
		t.Fatalf("merged to %d entries, want 1: %+v", len(merged), merged)
	}
	// First-seen text wins, even though the later entry has more detail.
	if merged[0].Name != "Jazz Night" || merged[0].Source != "citysearch" {
		t.Fatalf("canonical entry = %+v, want first-seen", merged[0])
	}
	if len(merged[0].AlsoOn) != 0 {
		t.Fatalf("unexpected recurrence annotation: %v", merged[0].AlsoOn)
	}
}

func TestMergeWordOverlapDuplicate(t *testing.T) {
	a := []Canonical{{Event: Event{Name: "Spring Food Festival Market", Date: "2025-03-01"}}}
	b := []Canonical{{Event: Event{Name: "The Spring Food Market", Date: "2025-03-01"}}}

	// Shared significant words: spring, food, market (3). Sets are
	// {spring,food,festival,market} and {the,spring,food,market};
	// 3/4 > 0.7, so the incoming entry is a duplicate.
	if merged := Merge(a, b); len(merged) != 1 {
		t.Fatalf("merged to %d entries, want 1: %+v", len(merged), merged)
	}

	// Different dates must not match on word overlap alone.
	c := []Canonical{{Event: Event{Name: "The Spring Food Market", Date: "2025-03-08"}}}
	if merged := Merge(a, c); len(merged) != 2 {
		t.Fatalf("cross-date overlap should survive, got %+v", merged)
	}
}

func TestMergeSetEquality(t *testing.T) {
	a := []Canonical{
		{Event: Event{Name: "Jazz Night", Date: "2025-03-01"}},
		{Event: Event{Name: "Poetry Slam", Date: "2025-03-02"}},
	}
	b := []Canonical{
		{Event: Event{Name: "jazz night at blue room", Date: "2025-03-01"}},
		{Event: Event{Name: "Craft Fair", Date: "2025-03-02"}},
	}

	ab := Merge(append([]Canonical(nil), a...), b)
	ba := Merge(append([]Canonical(nil), b...), a)

	if len(ab) != len(ba) {
		t.Fatalf("merge order changed the set size: %d vs %d", len(ab), len(ba))
	}
	// Retained text may differ between orders; the sets must agree up to
	// the dedup rule itself.
	for _, e := range ab {
		if !isDuplicate(ba, e) {
			t.Fatalf("entry %q/%s from A,B has no counterpart in B,A", e.Name, e.Date)
		}
	}
}

func TestSortForDisplayStable(t *testing.T) {
	events := []Canonical{
		{Event: Event{Name: "Untimed A", Date: "2025-03-01"}},
		{Event: Event{Name: "Late", Date: "2025-03-01", Time: "21:00"}},
		{Event: Event{Name: "Untimed B", Date: "2025-03-01"}},
		{Event: Event{Name: "Early", Date: "2025-03-01", Time: "09:00"}},
		{Event: Event{Name: "Next Day", Date: "2025-03-02", Time: "08:00"}},
	}
	SortForDisplay(events)

	order := make([]string, len(events))
	for i, e := range events {
		order[i] = e.Name
	}
	want := []string{"Early", "Late", "Untimed A", "Untimed B", "Next Day"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("display order = %v, want %v", order, want)
	}
}

func TestGroupByDateAscending(t *testing.T) {
	events := []Canonical{
		{Event: Event{Name: "A", Date: "2025-03-01"}},
		{Event: Event{Name: "B", Date: "2025-03-02"}},
		{Event: Event{Name: "C", Date: "2025-03-01"}},
	}
	SortForDisplay(events)
	dates, groups := GroupByDate(events)
	if !reflect.DeepEqual(dates, []string{"2025-03-01", "2025-03-02"}) {
		t.Fatalf("dates = %v", dates)
	}
	if len(groups["2025-03-01"]) != 2 {
		t.Fatalf("group sizes wrong: %v", groups)
	}
}
