package service

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limits caps the number of in-flight calls per external dependency
type Limits struct {
	Store   int64 // entity store reads and writes
	Scrape  int64 // detail page fetches
	Asset   int64 // image downloads and uploads
	Product int64 // product pipelines running at once
}

func DefaultLimits() Limits {
	return Limits{Store: 8, Scrape: 4, Asset: 4, Product: 8}
}

// Gates holds one semaphore per dependency. Services that talk to the same
// dependency must share the same Gates.
type Gates struct {
	Store   *semaphore.Weighted
	Scrape  *semaphore.Weighted
	Asset   *semaphore.Weighted
	Product *semaphore.Weighted
}

func NewGates(limits Limits) *Gates {
	defaults := DefaultLimits()
	pick := func(v, fallback int64) int64 {
		if v <= 0 {
			return fallback
		}
		return v
	}
	return &Gates{
		Store:   semaphore.NewWeighted(pick(limits.Store, defaults.Store)),
		Scrape:  semaphore.NewWeighted(pick(limits.Scrape, defaults.Scrape)),
		Asset:   semaphore.NewWeighted(pick(limits.Asset, defaults.Asset)),
		Product: semaphore.NewWeighted(pick(limits.Product, defaults.Product)),
	}
}

// withGate runs fn while holding one slot of gate. A nil gate means unbounded.
func withGate(ctx context.Context, gate *semaphore.Weighted, fn func() error) error {
	if gate == nil {
		return fn()
	}
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer gate.Release(1)
	return fn()
}
