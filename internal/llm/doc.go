// Package llm wraps the chat-completion API used for relevance judgments
// and event extraction. Responses are requested as JSON only; rate-limit
// failures are retried through the shared bounded-backoff caller, and
// anything unparseable surfaces as an error for the caller to drop and
// count.
package llm
