package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"tipscope/internal/chain"
	"tipscope/internal/metrics"
)

// LogSource issues one ranged get-logs call.
type LogSource interface {
	GetLogs(ctx context.Context, addresses []common.Address, topics [][]common.Hash, fromHeight, toHeight uint64) ([]types.Log, error)
}

// ProgressFunc receives fractional completion in percent after every window,
// whether or not that window succeeded.
type ProgressFunc func(percent float64)

// Config holds fetcher tuning knobs.
type Config struct {
	// WindowSize is the maximum height span per remote call.
	WindowSize uint64
	// WindowDelay is the pause between consecutive windows, to avoid
	// burst-triggering provider rate limits.
	WindowDelay time.Duration
}

// Fetcher retrieves logs over an arbitrary height range by splitting it into
// quota-sized windows and fetching them sequentially. A failing window is
// skipped rather than aborting the whole fetch; partial coverage is the
// caller's call to tolerate.
type Fetcher struct {
	cfg     Config
	source  LogSource
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewFetcher builds a Fetcher.
func NewFetcher(cfg Config, source LogSource, m *metrics.Metrics, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 5000
	}
	return &Fetcher{cfg: cfg, source: source, logger: logger, metrics: m}
}

// FetchLogs fetches logs for [fromHeight, toHeight]. Results are returned in
// window-issue order (ascending height); callers normalize final ordering.
// Windows pending provider indexing count as empty, not failed; an error is
// returned only when no window succeeds and at least one genuinely fails.
func (f *Fetcher) FetchLogs(
	ctx context.Context,
	addresses []common.Address,
	topics [][]common.Hash,
	fromHeight uint64,
	toHeight uint64,
	onProgress ProgressFunc,
) ([]types.Log, error) {
	windows, err := SplitRange(fromHeight, toHeight, f.cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	var (
		logs     []types.Log
		failed   int
		indexing int
		lastErr  error
	)

	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		windowLogs, err := f.source.GetLogs(ctx, addresses, topics, window.From, window.To)
		switch {
		case err == nil:
			logs = append(logs, windowLogs...)
			f.metrics.RecordWindow("ok")
		case chain.IsIndexing(err):
			// The provider has no historical index for this span yet.
			// Treat as temporarily empty, not as a failure.
			f.logger.Warn("window not indexed yet",
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
			)
			indexing++
			f.metrics.RecordWindow("indexing")
		default:
			f.logger.Warn("window fetch failed, skipping",
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
				zap.Error(err),
			)
			failed++
			lastErr = err
			f.metrics.RecordWindow("skipped")
		}

		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(windows)) * 100)
		}

		if i < len(windows)-1 && f.cfg.WindowDelay > 0 {
			timer := time.NewTimer(f.cfg.WindowDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if failed > 0 && failed+indexing == len(windows) {
		return nil, fmt.Errorf("no window succeeded: %d of %d failed: %w", failed, len(windows), lastErr)
	}

	return logs, nil
}
