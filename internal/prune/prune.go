// Package prune trims a collection of sized items to fit a size budget.
//
// Items are removed by uniform random sampling without replacement until the
// aggregate size of what remains is at or below the target. Selection is not
// biased towards large or small items, so the number of removals is not
// minimal. The caller's collection is never mutated: [Pruner.Prune] returns
// the removed items so they can be applied to storage in a single batch.
package prune

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/desertthunder/plx/internal/shared"
)

// Item is an opaque identifier with a non-negative size in bytes.
type Item struct {
	ID   string
	Size int64
}

// Result describes one pruning run.
//
// FinalSize == InitialSize - sum(Removed sizes), and FinalSize <= TargetSize
// unless every item was removed.
type Result struct {
	Removed     []Item // Removed items in removal order
	InitialSize int64
	FinalSize   int64
	TargetSize  int64
}

// RemovedSize sums the size of the removed items.
func (r *Result) RemovedSize() int64 {
	return TotalSize(r.Removed)
}

// ProgressFunc observes a run after each removal with the number of items
// left in the working copy and their aggregate size.
type ProgressFunc func(remaining int, sizeBytes int64)

// Pruner removes random items from a collection until it fits a target size.
type Pruner struct {
	rng        *rand.Rand
	onProgress ProgressFunc
}

// Option configures a [Pruner].
type Option func(*Pruner)

// WithRand sets the random source. Runs are deterministic for a given source state.
func WithRand(r *rand.Rand) Option {
	return func(p *Pruner) { p.rng = r }
}

// WithSeed seeds a PCG source with seed.
func WithSeed(seed uint64) Option {
	return func(p *Pruner) { p.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithProgress registers fn to be called after each removal.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pruner) { p.onProgress = fn }
}

// New creates a Pruner. Without [WithRand] or [WithSeed] it draws from a randomly seeded source.
func New(opts ...Option) *Pruner {
	p := &Pruner{}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p
}

// Prune removes randomly chosen items until the remaining size is at or below targetSize.
func (p *Pruner) Prune(items []Item, targetSize int64) (*Result, error) {
	return p.PruneContext(context.Background(), items, targetSize)
}

// PruneContext is [Pruner.Prune] with cancellation checked between removals.
//
// A canceled run returns the context error and no result.
func (p *Pruner) PruneContext(ctx context.Context, items []Item, targetSize int64) (*Result, error) {
	if targetSize < 0 {
		return nil, fmt.Errorf("%w: target size must be non-negative, got %d", shared.ErrInvalidArgument, targetSize)
	}

	current := int64(0)
	for _, it := range items {
		if it.Size < 0 {
			return nil, fmt.Errorf("%w: item %q has negative size %d", shared.ErrInvalidArgument, it.ID, it.Size)
		}
		current += it.Size
	}

	result := &Result{InitialSize: current, FinalSize: current, TargetSize: targetSize}
	if current <= targetSize {
		return result, nil
	}

	// Swap-remove keeps each removal O(1): the last live slot moves into the picked one.
	working := make([]Item, len(items))
	copy(working, items)
	result.Removed = make([]Item, 0, len(items)/2+1)

	for current > targetSize && len(working) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("prune canceled after %d removals: %w", len(result.Removed), err)
		}

		i := p.rng.IntN(len(working))
		picked := working[i]
		last := len(working) - 1
		working[i] = working[last]
		working = working[:last]

		result.Removed = append(result.Removed, picked)
		current -= picked.Size

		if p.onProgress != nil {
			p.onProgress(len(working), current)
		}
	}

	result.FinalSize = current
	return result, nil
}

// TotalSize sums the size of items.
func TotalSize(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Size
	}
	return total
}

// Fraction reports how far a run has progressed from initial towards target
// as (initialDiff - currentDiff) / initialDiff, where diff = size - target.
//
// The result is clamped to [0, 1]; a run that started at or below target is complete.
func Fraction(initial, target, current int64) float64 {
	initialDiff := initial - target
	if initialDiff <= 0 {
		return 1
	}
	f := float64(initialDiff-(current-target)) / float64(initialDiff)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Apply returns items without the removed ones, preserving order.
//
// Each removed item cancels one entry with the same ID, so collections holding
// the same ID more than once lose exactly as many entries as were removed.
func Apply(items, removed []Item) []Item {
	pending := make(map[string]int, len(removed))
	for _, it := range removed {
		pending[it.ID]++
	}

	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if pending[it.ID] > 0 {
			pending[it.ID]--
			continue
		}
		kept = append(kept, it)
	}
	return kept
}
