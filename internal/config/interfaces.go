package config

import "context"

// SecretProvider abstracts secret retrieval so production can use AWS SSM
// Parameter Store while local development and tests use plain environment
// variables.
type SecretProvider interface {
	// GetParametersBatch resolves the given parameter paths and returns a
	// map of path -> plaintext value for every parameter found.
	// Implementations handle batching limits internally.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
