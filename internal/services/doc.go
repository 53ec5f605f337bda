// Package services holds cross-cutting helpers shared by pipeline
// components: the sentinel error taxonomy used for retry and failure
// classification, and context annotations that tie log lines back to a
// run, a neighborhood, and a source.
package services
