package model

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKind identifies the token a tip was paid in.
type AssetKind string

// Period selects the aggregation window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a period string.
func ParsePeriod(input string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(input))) {
	case PeriodDay:
		return PeriodDay, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	case PeriodAll:
		return PeriodAll, nil
	default:
		return "", fmt.Errorf("invalid period: %s", input)
	}
}

// Event is one observed tip transfer. Events are immutable after
// normalization except for the one-time timestamp fill.
type Event struct {
	Sender      string    `json:"sender"`
	Amount      *big.Int  `json:"amount"`
	BlockHeight uint64    `json:"block_height"`
	Timestamp   uint64    `json:"timestamp"`
	TxRef       string    `json:"tx_ref"`
	Asset       AssetKind `json:"asset"`
}

// SortEventsDesc sorts events by block height descending in place.
// Equal heights keep their relative order.
func SortEventsDesc(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].BlockHeight > events[j].BlockHeight
	})
}

// ParseAssetMap converts "0xADDRESS=SYMBOL" entries into an address keyed map.
func ParseAssetMap(entries []string) (map[common.Address]AssetKind, error) {
	assets := make(map[common.Address]AssetKind, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid asset entry: %s", entry)
		}
		addr := strings.TrimSpace(parts[0])
		symbol := strings.TrimSpace(parts[1])
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid asset address: %s", addr)
		}
		if symbol == "" {
			return nil, fmt.Errorf("empty asset symbol for %s", addr)
		}
		assets[common.HexToAddress(addr)] = AssetKind(symbol)
	}
	return assets, nil
}
