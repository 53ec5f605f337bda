// Package event models structured happenings extracted from candidate
// content and implements the merge pipeline that turns per-source event
// lists into a single deduplicated, display-ordered digest.
//
// The merge runs in three passes: validation (date and name are mandatory),
// recurring collapse (one canonical entry per normalized name, earliest
// date wins, later dates become an "also on" annotation), and cross-source
// dedup (name containment or same-date word overlap). Ordering is stable:
// dates ascending, timed entries before untimed within a date.
package event
