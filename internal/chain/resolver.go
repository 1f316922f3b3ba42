package chain

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BlockTimer resolves a single height to its wall-clock time.
type BlockTimer interface {
	BlockTime(ctx context.Context, height uint64) (uint64, error)
}

// Resolver memoizes height -> timestamp lookups. Entries are write-once:
// blocks are immutable once produced, so a present key is trusted forever.
// A failed lookup is recorded with a zero timestamp so a single bad height
// cannot block its batch or be retried indefinitely.
type Resolver struct {
	source     BlockTimer
	logger     *zap.Logger
	batchSize  int
	batchDelay time.Duration

	mu    sync.RWMutex
	cache map[uint64]uint64
}

// NewResolver builds a Resolver. batchSize bounds the number of concurrent
// remote calls; batchDelay is the pause between consecutive batches.
func NewResolver(source BlockTimer, batchSize int, batchDelay time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Resolver{
		source:     source,
		logger:     logger,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		cache:      make(map[uint64]uint64),
	}
}

// Lookup returns the cached timestamp for a height, if present.
func (r *Resolver) Lookup(height uint64) (uint64, bool) {
	r.mu.RLock()
	ts, ok := r.cache[height]
	r.mu.RUnlock()
	return ts, ok
}

// Resolve returns timestamps for every requested height, consulting the
// cache first and fetching the rest in bounded concurrent batches.
func (r *Resolver) Resolve(ctx context.Context, heights []uint64) (map[uint64]uint64, error) {
	resolved := make(map[uint64]uint64, len(heights))

	pending := make([]uint64, 0, len(heights))
	for _, height := range heights {
		if _, dup := resolved[height]; dup {
			continue
		}
		if ts, ok := r.Lookup(height); ok {
			resolved[height] = ts
			continue
		}
		resolved[height] = 0
		pending = append(pending, height)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	for start := 0; start < len(pending); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		end := start + r.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		results := make([]uint64, end-start)
		for i, height := range pending[start:end] {
			i, height := i, height
			group.Go(func() error {
				ts, err := r.source.BlockTime(groupCtx, height)
				if err != nil {
					r.logger.Warn("block time lookup failed", zap.Uint64("height", height), zap.Error(err))
					ts = 0
				}
				results[i] = ts
				return nil
			})
		}
		// Individual failures degrade to the zero sentinel, so the group
		// itself never errors.
		_ = group.Wait()

		for i, height := range pending[start:end] {
			r.store(height, results[i])
			resolved[height] = results[i]
		}

		if end < len(pending) && r.batchDelay > 0 {
			timer := time.NewTimer(r.batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return resolved, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return resolved, nil
}

// store writes a timestamp once; later writes for the same height are ignored.
func (r *Resolver) store(height, ts uint64) {
	r.mu.Lock()
	if _, ok := r.cache[height]; !ok {
		r.cache[height] = ts
	}
	r.mu.Unlock()
}
