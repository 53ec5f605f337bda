package services

import "context"

type contextKey string

const (
	runIDKey        contextKey = "run_id"
	neighborhoodKey contextKey = "neighborhood_id"
	sourceKey       contextKey = "source"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the pipeline run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithNeighborhood annotates context with the neighborhood being processed.
func WithNeighborhood(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, neighborhoodKey, id)
}

// NeighborhoodFromContext extracts the neighborhood identifier if present.
func NeighborhoodFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(neighborhoodKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSource annotates context with the fetcher source name.
func WithSource(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, name)
}

// SourceFromContext extracts the fetcher source name if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
