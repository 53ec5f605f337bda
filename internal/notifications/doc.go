// Package notifications delivers operator push notifications through ntfy.
// Delivery failures never fail the pipeline; callers log and continue.
package notifications
