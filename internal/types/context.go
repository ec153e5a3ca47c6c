package types

import "context"

type contextKey string

const runIDKey contextKey = "run_id"

// WithRunID stores the pipeline run identifier in the context. The run id
// correlates log lines and outbound collaborator calls belonging to one
// invocation.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID retrieves the pipeline run identifier, or "" when absent.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}
