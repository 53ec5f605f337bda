// Package logging configures the process-wide slog logger and provides
// shared attribute helpers so components emit consistently keyed fields.
//
// Output format defaults to a human-oriented text handler when stdout is a
// terminal and JSON otherwise; both can be forced through configuration.
package logging
