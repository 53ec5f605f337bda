// Package relevance turns raw candidate items into structured, scored
// editorial decisions and extracts structured events from unstructured
// source text.
//
// Judgments that cannot be parsed or fall below the confidence threshold
// are dropped and counted by the caller; they are never escalated as
// errors.
package relevance
