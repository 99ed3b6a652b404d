// Package metadata is a small key/value table for agent bookkeeping such as
// the outcome of the last replay pass.
package metadata

import (
	"context"
)

// KeyLastReplay holds the models.ReplayOutcome of the last pass.
const KeyLastReplay = "sync.last_replay"

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
}
