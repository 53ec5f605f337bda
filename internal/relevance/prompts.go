package relevance

// judgmentPrompt instructs the model to score one candidate item against
// the supplied target neighborhoods and rewrite it to house style.
const judgmentPrompt = `You are an editor for a hyperlocal news service.
You receive one candidate item and a list of valid target neighborhoods.
Decide whether the item is relevant local content for exactly one of the
targets. Rewrite relevant items concisely in neutral editorial tone,
within the given length limit.

Respond with JSON only, using exactly this schema:
{
  "is_relevant": true or false,
  "target_id": "<one of the provided target ids, or null>",
  "title": "<rewritten headline, empty if irrelevant>",
  "summary": "<rewritten summary, empty if irrelevant>",
  "confidence": <number between 0 and 1>
}`

// extractionPrompt instructs the model to pull structured events from raw
// source text for one neighborhood.
const extractionPrompt = `You extract local event listings from raw text.
Return every distinct upcoming event you can identify for the given
neighborhood. Dates must be ISO format (YYYY-MM-DD); times 24h HH:MM.
Omit fields you cannot determine. Skip anything without both a date and a
name.

Respond with JSON only, using exactly this schema:
{
  "events": [
    {
      "date": "YYYY-MM-DD",
      "time": "HH:MM",
      "name": "<event name>",
      "category": "<short category>",
      "venue": "<venue name>",
      "address": "<street address>",
      "price": "<price text>"
    }
  ]
}`
