package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"tipscope/internal/fetch"
	"tipscope/internal/metrics"
	"tipscope/internal/model"
)

// HeadSource reports the current tip height of the remote ledger.
type HeadSource interface {
	HeadHeight(ctx context.Context) (uint64, error)
}

// LogFetcher retrieves raw logs over an inclusive height range.
type LogFetcher interface {
	FetchLogs(ctx context.Context, addresses []common.Address, topics [][]common.Hash, fromHeight, toHeight uint64, onProgress fetch.ProgressFunc) ([]types.Log, error)
}

// TimestampResolver maps heights to wall-clock times.
type TimestampResolver interface {
	Resolve(ctx context.Context, heights []uint64) (map[uint64]uint64, error)
}

// Config holds controller settings.
type Config struct {
	Addresses       []common.Address
	Topics          [][]common.Hash
	Assets          map[common.Address]model.AssetKind
	Lookbacks       map[model.Period]uint64
	RefreshInterval time.Duration
}

// DefaultLookbacks returns the per-period height lookbacks. "all" is capped
// at the month lookback to bound worst-case fetch cost.
func DefaultLookbacks() map[model.Period]uint64 {
	return map[model.Period]uint64{
		model.PeriodDay:   50_000,
		model.PeriodWeek:  350_000,
		model.PeriodMonth: 1_500_000,
		model.PeriodAll:   1_500_000,
	}
}

// Controller owns the authoritative event list and the sync cursor. A full
// fetch replaces the list when the period changes; delta fetches extend it
// on a timer. All state transitions happen under one mutex so readers never
// observe a partially merged list, and every commit is guarded by a
// generation counter so a stale in-flight fetch is discarded rather than
// applied.
type Controller struct {
	cfg      Config
	head     HeadSource
	fetcher  LogFetcher
	resolver TimestampResolver
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	gen         uint64
	cancelFetch context.CancelFunc
	period      model.Period
	events      []model.Event
	cursor      uint64
	hasSynced   bool
	loading     bool
	refreshing  bool
	progress    float64
	lastErr     string
	uniques     *hyperloglog.Sketch
}

// NewController builds a Controller.
func NewController(cfg Config, head HeadSource, fetcher LogFetcher, resolver TimestampResolver, m *metrics.Metrics, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Lookbacks == nil {
		cfg.Lookbacks = DefaultLookbacks()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	return &Controller{
		cfg:      cfg,
		head:     head,
		fetcher:  fetcher,
		resolver: resolver,
		logger:   logger,
		metrics:  m,
		uniques:  hyperloglog.New16(),
	}
}

// SetPeriod switches the selected period and starts a full fetch for it.
// Any in-flight fetch is cancelled and its result discarded.
func (c *Controller) SetPeriod(ctx context.Context, period model.Period) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancelFetch = cancel
	c.period = period
	c.loading = true
	c.refreshing = false
	c.progress = 0
	c.lastErr = ""
	c.mu.Unlock()

	go c.fullFetch(fetchCtx, gen, period)
}

// Run drives periodic delta fetches until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.cancelFetch != nil {
				c.cancelFetch()
			}
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Snapshot returns a copy of the published pipeline state.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]model.Event, len(c.events))
	copy(events, c.events)

	return model.Snapshot{
		Period:                c.period,
		Events:                events,
		Cursor:                c.cursor,
		IsLoading:             c.loading,
		IsRefreshing:          c.refreshing,
		ProgressPercent:       c.progress,
		LastError:             c.lastErr,
		UniqueSendersEstimate: c.uniques.Estimate(),
	}
}

func (c *Controller) fullFetch(ctx context.Context, gen uint64, period model.Period) {
	head, err := c.head.HeadHeight(ctx)
	if err != nil {
		c.logger.Warn("head height failed", zap.Error(err))
		c.failFull(gen, err)
		return
	}
	c.metrics.SetHeadHeight(head)

	lookback, ok := c.cfg.Lookbacks[period]
	if !ok {
		lookback = c.cfg.Lookbacks[model.PeriodMonth]
	}
	var from uint64
	if head > lookback {
		from = head - lookback
	}

	logs, err := c.fetcher.FetchLogs(ctx, c.cfg.Addresses, c.cfg.Topics, from, head, func(percent float64) {
		c.setProgress(gen, percent)
	})
	if err != nil {
		c.logger.Warn("full fetch failed", zap.String("period", string(period)), zap.Error(err))
		c.failFull(gen, err)
		return
	}

	events := fetch.Normalize(logs, c.cfg.Assets)
	if err := c.fillTimestamps(ctx, events); err != nil {
		c.failFull(gen, err)
		return
	}
	model.SortEventsDesc(events)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// A newer period change superseded this fetch.
		return
	}
	c.events = events
	c.cursor = head
	c.hasSynced = true
	c.loading = false
	c.lastErr = ""
	c.observeSenders(events)
	c.metrics.RecordFetch("full", nil)
	c.metrics.RecordMerge(len(events), head)
	c.logger.Info("full fetch complete",
		zap.String("period", string(period)),
		zap.Uint64("from", from),
		zap.Uint64("head", head),
		zap.Int("events", len(events)),
	)
}

// Tick performs one delta fetch over (cursor, head]. It is a no-op while a
// full fetch is in flight, before the first full fetch completes, or when
// the head has not advanced.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if !c.hasSynced || c.loading || c.refreshing {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	cursor := c.cursor
	c.refreshing = true
	c.mu.Unlock()

	head, err := c.head.HeadHeight(ctx)
	if err != nil {
		c.failDelta(gen, err)
		return
	}
	c.metrics.SetHeadHeight(head)

	if head <= cursor {
		c.mu.Lock()
		if gen == c.gen {
			c.refreshing = false
		}
		c.mu.Unlock()
		return
	}

	logs, err := c.fetcher.FetchLogs(ctx, c.cfg.Addresses, c.cfg.Topics, cursor+1, head, nil)
	if err != nil {
		c.failDelta(gen, err)
		return
	}

	events := fetch.Normalize(logs, c.cfg.Assets)
	if err := c.fillTimestamps(ctx, events); err != nil {
		c.failDelta(gen, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.events = append(c.events, events...)
	model.SortEventsDesc(c.events)
	c.cursor = head
	c.refreshing = false
	c.lastErr = ""
	c.observeSenders(events)
	c.metrics.RecordFetch("delta", nil)
	c.metrics.RecordMerge(len(events), head)
	c.logger.Info("delta fetch complete",
		zap.Uint64("from", cursor+1),
		zap.Uint64("head", head),
		zap.Int("events", len(events)),
	)
}

// failFull marks the current period as degraded: empty list, undefined
// cursor. The next period change or reload gets a fresh chance.
func (c *Controller) failFull(gen uint64, err error) {
	c.metrics.RecordFetch("full", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.events = nil
	c.cursor = 0
	c.hasSynced = false
	c.loading = false
	c.lastErr = err.Error()
}

// failDelta leaves already-merged events in place; the data is merely stale
// until the next successful tick.
func (c *Controller) failDelta(gen uint64, err error) {
	c.metrics.RecordFetch("delta", err)
	c.logger.Warn("delta fetch failed", zap.Error(err))
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.refreshing = false
	c.lastErr = err.Error()
}

func (c *Controller) setProgress(gen uint64, percent float64) {
	c.mu.Lock()
	if gen == c.gen {
		c.progress = percent
	}
	c.mu.Unlock()
}

// fillTimestamps resolves and assigns wall-clock times for every event
// height. Resolution failures inside the resolver degrade to the zero
// sentinel; only context cancellation aborts.
func (c *Controller) fillTimestamps(ctx context.Context, events []model.Event) error {
	if c.resolver == nil || len(events) == 0 {
		return nil
	}

	heights := make([]uint64, 0, len(events))
	seen := make(map[uint64]struct{}, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.BlockHeight]; ok {
			continue
		}
		seen[ev.BlockHeight] = struct{}{}
		heights = append(heights, ev.BlockHeight)
	}

	resolved, err := c.resolver.Resolve(ctx, heights)
	if err != nil {
		return err
	}
	for i := range events {
		events[i].Timestamp = resolved[events[i].BlockHeight]
	}
	return nil
}

// observeSenders feeds merged events into the lifetime unique-sender sketch.
// Callers hold c.mu.
func (c *Controller) observeSenders(events []model.Event) {
	for _, ev := range events {
		c.uniques.Insert([]byte(ev.Sender))
	}
}
