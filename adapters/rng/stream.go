package rng

import (
	"context"
	"math/rand"
	"strconv"

	"biasclean/ports"
)

// Adapter derives independent streams from a run seed
type Adapter struct{}

var _ ports.RNGPort = (*Adapter)(nil)

// New returns a stream adapter
func New() *Adapter {
	return &Adapter{}
}

// Stream folds domain, iteration and strategy into seed, in that order
func (a *Adapter) Stream(ctx context.Context, key ports.StreamKey, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(Seed(key, seed))), nil
}

// Seed is the source seed Stream uses for key
func Seed(key ports.StreamKey, seed int64) int64 {
	for _, part := range []string{key.Domain, "iteration-" + strconv.Itoa(key.Iteration), key.Strategy} {
		seed = mix(seed, part)
	}
	return seed
}

// mix folds a djb2 hash of s into seed; empty parts leave it unchanged
func mix(seed int64, s string) int64 {
	if s == "" {
		return seed
	}
	h := uint32(5381)
	for _, c := range s {
		h = h<<5 + h + uint32(c)
	}
	return seed*31 + int64(h)
}
