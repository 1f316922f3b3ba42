package model

import "math/big"

// Snapshot is the read-only pipeline state handed to the dashboard.
type Snapshot struct {
	Period          Period  `json:"period"`
	Events          []Event `json:"events"`
	Cursor          uint64  `json:"cursor"`
	IsLoading       bool    `json:"is_loading"`
	IsRefreshing    bool    `json:"is_refreshing"`
	ProgressPercent float64 `json:"progress_percent"`
	LastError       string  `json:"last_error,omitempty"`

	// Approximate count of distinct senders seen since process start,
	// across all periods. Exact per-window counts live on AggregationWindow.
	UniqueSendersEstimate uint64 `json:"unique_senders_estimate"`
}

// LeaderboardEntry is one ranked sender within a window.
type LeaderboardEntry struct {
	Sender      string   `json:"sender"`
	Amount      *big.Int `json:"amount"`
	AmountText  string   `json:"amount_text"`
	EventCount  int      `json:"event_count"`
	DisplayName string   `json:"display_name,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// SeriesPoint is one time bucket of the charted series.
type SeriesPoint struct {
	BucketStart int64                  `json:"bucket_start"`
	Totals      map[AssetKind]*big.Int `json:"totals"`
	EventCount  int                    `json:"event_count"`
}

// AggregationWindow is the derived view for one (period, asset filter) pair.
// It is recomputed from the event list on demand and never mutated.
type AggregationWindow struct {
	Label         string                           `json:"label"`
	Period        Period                           `json:"period"`
	Asset         AssetKind                        `json:"asset,omitempty"`
	TotalsByAsset map[AssetKind]*big.Int           `json:"totals_by_asset"`
	UniqueSenders int                              `json:"unique_senders"`
	EventCount    int                              `json:"event_count"`
	Leaderboards  map[AssetKind][]LeaderboardEntry `json:"leaderboards"`
	Series        []SeriesPoint                    `json:"series"`
}
