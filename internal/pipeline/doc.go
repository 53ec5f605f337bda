// Package pipeline orchestrates content-generation runs.
//
// The Runner computes which neighborhoods are due from the scheduler, then
// processes them in bounded batches: every source is fetched for each
// neighborhood, candidates pass through the relevance filter, extracted
// events are merged across sources with first-seen-wins deduplication, and
// the rendered digest goes through the publish gate. Each batch settles
// completely before the next starts, and the wall-clock budget is checked
// between batches so a slow run ends as a recorded partial rather than an
// overrun.
//
// Failures are isolated at two levels: a failing source degrades one
// neighborhood's input, and a failing neighborhood never stops the rest of
// its batch. The only aborts before any work are missing credentials and
// an empty fetcher set.
package pipeline
