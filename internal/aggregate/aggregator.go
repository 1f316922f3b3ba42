package aggregate

import (
	"math/big"
	"sort"
	"time"

	"tipscope/internal/model"
)

const defaultTopN = 15

// Params selects what Compute derives from the event list.
type Params struct {
	Period model.Period
	// Asset filters to a single asset kind; empty means all assets.
	Asset model.AssetKind
	// FillEmpty emits zero-valued points for every bucket in the window's
	// full range, producing a gap-free series. Ignored for PeriodAll.
	FillEmpty bool
	TopN      int
	// AssetDecimals scales leaderboard display text; zero renders raw
	// base units. Summing stays in base units either way.
	AssetDecimals uint8
	Now           time.Time
	Location      *time.Location
}

// Compute derives an AggregationWindow from the event list. It is a pure
// function of its inputs: the list is only read, and amounts are summed
// with exact integer arithmetic.
func Compute(events []model.Event, p Params) model.AggregationWindow {
	if p.Location == nil {
		p.Location = time.Local
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	p.Now = p.Now.In(p.Location)
	if p.TopN <= 0 {
		p.TopN = defaultTopN
	}

	start, bounded := windowStart(p.Period, p.Now, p.Location)
	filtered := filterEvents(events, p, start, bounded)

	totals := make(map[model.AssetKind]*big.Int)
	uniques := make(map[string]struct{}, len(filtered))
	for _, ev := range filtered {
		total, ok := totals[ev.Asset]
		if !ok {
			total = new(big.Int)
			totals[ev.Asset] = total
		}
		total.Add(total, ev.Amount)
		uniques[ev.Sender] = struct{}{}
	}

	return model.AggregationWindow{
		Label:         string(p.Period),
		Period:        p.Period,
		Asset:         p.Asset,
		TotalsByAsset: totals,
		UniqueSenders: len(uniques),
		EventCount:    len(filtered),
		Leaderboards:  leaderboards(filtered, p.TopN, p.AssetDecimals),
		Series:        buildSeries(filtered, p, start, bounded),
	}
}

// windowStart returns the lower time bound for a period. PeriodAll has no
// lower bound; only the already height-capped list applies.
func windowStart(period model.Period, now time.Time, loc *time.Location) (time.Time, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch period {
	case model.PeriodDay:
		return midnight, true
	case model.PeriodWeek:
		return midnight.AddDate(0, 0, -6), true
	case model.PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// filterEvents applies the asset filter and, for bounded periods, the time
// window. Events with an unresolved (zero) timestamp are excluded from
// bounded windows but kept for PeriodAll.
func filterEvents(events []model.Event, p Params, start time.Time, bounded bool) []model.Event {
	filtered := make([]model.Event, 0, len(events))
	startUnix := start.Unix()
	nowUnix := p.Now.Unix()
	for _, ev := range events {
		if p.Asset != "" && ev.Asset != p.Asset {
			continue
		}
		if bounded {
			if ev.Timestamp == 0 {
				continue
			}
			ts := int64(ev.Timestamp)
			if ts < startUnix || ts > nowUnix {
				continue
			}
		}
		filtered = append(filtered, ev)
	}
	return filtered
}

// leaderboards groups events by sender per asset, sums amounts exactly, and
// ranks descending. Ties keep first-seen order (stable sort).
func leaderboards(events []model.Event, topN int, decimals uint8) map[model.AssetKind][]model.LeaderboardEntry {
	type group struct {
		entries []model.LeaderboardEntry
		index   map[string]int
	}
	groups := make(map[model.AssetKind]*group)

	for _, ev := range events {
		g, ok := groups[ev.Asset]
		if !ok {
			g = &group{index: make(map[string]int)}
			groups[ev.Asset] = g
		}
		i, ok := g.index[ev.Sender]
		if !ok {
			i = len(g.entries)
			g.index[ev.Sender] = i
			g.entries = append(g.entries, model.LeaderboardEntry{
				Sender: ev.Sender,
				Amount: new(big.Int),
			})
		}
		g.entries[i].Amount.Add(g.entries[i].Amount, ev.Amount)
		g.entries[i].EventCount++
	}

	boards := make(map[model.AssetKind][]model.LeaderboardEntry, len(groups))
	for asset, g := range groups {
		entries := g.entries
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Amount.Cmp(entries[j].Amount) > 0
		})
		if len(entries) > topN {
			entries = entries[:topN]
		}
		for i := range entries {
			entries[i].AmountText = FormatAmount(entries[i].Amount, decimals)
		}
		boards[asset] = entries
	}
	return boards
}
