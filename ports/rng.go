package ports

import (
	"context"
	"fmt"
	"math/rand"
)

// StreamKey names one random stream inside a run
type StreamKey struct {
	Domain    string
	Iteration int
	Strategy  string
}

func (k StreamKey) String() string {
	return fmt.Sprintf("%s/iteration-%d/%s", k.Domain, k.Iteration, k.Strategy)
}

// RNGPort hands out reproducible random streams. Equal keys and seeds give
// equal sequences no matter which goroutine asks or in what order.
type RNGPort interface {
	Stream(ctx context.Context, key StreamKey, seed int64) (*rand.Rand, error)
}
