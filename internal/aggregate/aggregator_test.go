package aggregate

import (
	"math/big"
	"testing"
	"time"

	"tipscope/internal/model"
)

func amount(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad amount: " + s)
	}
	return v
}

func event(sender string, amt string, height uint64, ts uint64, asset model.AssetKind) model.Event {
	return model.Event{
		Sender:      sender,
		Amount:      amount(amt),
		BlockHeight: height,
		Timestamp:   ts,
		TxRef:       "0xtx",
		Asset:       asset,
	}
}

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func ts(t time.Time) uint64 { return uint64(t.Unix()) }

func TestTotalsExactIntegerArithmetic(t *testing.T) {
	huge := "1000000000000000000000000000000" // 10^30, beyond float64 precision
	events := []model.Event{
		event("0xaa", huge, 2, ts(testNow), "GLM"),
		event("0xbb", "1", 1, ts(testNow), "GLM"),
	}

	window := Compute(events, Params{Period: model.PeriodAll, Now: testNow, Location: time.UTC})

	got := window.TotalsByAsset["GLM"].String()
	want := "1000000000000000000000000000001"
	if got != want {
		t.Fatalf("low-order digit lost: %s != %s", got, want)
	}
	if window.EventCount != 2 {
		t.Fatalf("event count %d", window.EventCount)
	}
}

func TestLeaderboardRanking(t *testing.T) {
	events := []model.Event{
		event("0xa", "300", 3, ts(testNow), "GLM"),
		event("0xb", "200", 2, ts(testNow), "GLM"),
		event("0xa", "100", 1, ts(testNow), "GLM"),
	}

	window := Compute(events, Params{Period: model.PeriodAll, Now: testNow, Location: time.UTC})

	board := window.Leaderboards["GLM"]
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].Sender != "0xa" || board[0].Amount.String() != "400" {
		t.Fatalf("top entry: %+v", board[0])
	}
	if board[0].EventCount != 2 {
		t.Fatalf("top entry event count: %d", board[0].EventCount)
	}
	if board[1].Sender != "0xb" || board[1].Amount.String() != "200" {
		t.Fatalf("second entry: %+v", board[1])
	}
	// Zero decimals render raw base units.
	if board[0].AmountText != "400" {
		t.Fatalf("top entry amount text: %s", board[0].AmountText)
	}
}

func TestLeaderboardAmountText(t *testing.T) {
	events := []model.Event{
		event("0xa", "1500000000000000000", 1, ts(testNow), "GLM"),
	}

	window := Compute(events, Params{
		Period:        model.PeriodAll,
		AssetDecimals: 18,
		Now:           testNow,
		Location:      time.UTC,
	})

	board := window.Leaderboards["GLM"]
	if len(board) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(board))
	}
	if board[0].AmountText != "1.500000000000000000" {
		t.Fatalf("amount text %s", board[0].AmountText)
	}
	if board[0].Amount.String() != "1500000000000000000" {
		t.Fatalf("base-unit amount changed: %s", board[0].Amount)
	}
}

func TestLeaderboardStableTiesAndTruncation(t *testing.T) {
	events := []model.Event{
		event("0xfirst", "100", 3, ts(testNow), "GLM"),
		event("0xsecond", "100", 2, ts(testNow), "GLM"),
		event("0xthird", "50", 1, ts(testNow), "GLM"),
	}

	window := Compute(events, Params{Period: model.PeriodAll, TopN: 2, Now: testNow, Location: time.UTC})

	board := window.Leaderboards["GLM"]
	if len(board) != 2 {
		t.Fatalf("truncation failed: %d entries", len(board))
	}
	// Equal amounts keep first-seen order.
	if board[0].Sender != "0xfirst" || board[1].Sender != "0xsecond" {
		t.Fatalf("tie order not stable: %s, %s", board[0].Sender, board[1].Sender)
	}
}

func TestAssetFilter(t *testing.T) {
	events := []model.Event{
		event("0xa", "100", 2, ts(testNow), "GLM"),
		event("0xb", "900", 1, ts(testNow), "GNT"),
	}

	window := Compute(events, Params{Period: model.PeriodAll, Asset: "GLM", Now: testNow, Location: time.UTC})

	if window.EventCount != 1 {
		t.Fatalf("filter kept %d events", window.EventCount)
	}
	if _, ok := window.TotalsByAsset["GNT"]; ok {
		t.Fatalf("filtered asset leaked into totals")
	}
	if len(window.Leaderboards) != 1 {
		t.Fatalf("filtered asset leaked into leaderboards")
	}
}

func TestUniqueSenders(t *testing.T) {
	events := []model.Event{
		event("0xa", "1", 3, ts(testNow), "GLM"),
		event("0xa", "1", 2, ts(testNow), "GLM"),
		event("0xb", "1", 1, ts(testNow), "GNT"),
	}

	window := Compute(events, Params{Period: model.PeriodAll, Now: testNow, Location: time.UTC})
	if window.UniqueSenders != 2 {
		t.Fatalf("unique senders %d, want 2", window.UniqueSenders)
	}
}

func TestDayWindowBounds(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	events := []model.Event{
		event("0xa", "10", 3, ts(testNow.Add(-time.Hour)), "GLM"),
		event("0xb", "20", 2, ts(yesterday), "GLM"),
		event("0xc", "30", 1, 0, "GLM"), // unresolved timestamp
	}

	window := Compute(events, Params{Period: model.PeriodDay, Now: testNow, Location: time.UTC})

	if window.EventCount != 1 {
		t.Fatalf("day window kept %d events, want 1", window.EventCount)
	}
	if window.TotalsByAsset["GLM"].String() != "10" {
		t.Fatalf("day total %s", window.TotalsByAsset["GLM"])
	}
}

func TestAllIncludesUnresolvedTimestamps(t *testing.T) {
	events := []model.Event{
		event("0xa", "10", 2, ts(testNow), "GLM"),
		event("0xb", "20", 1, 0, "GLM"),
	}

	window := Compute(events, Params{Period: model.PeriodAll, Now: testNow, Location: time.UTC})

	if window.EventCount != 2 {
		t.Fatalf("all period dropped unresolved events: %d", window.EventCount)
	}
	if window.TotalsByAsset["GLM"].String() != "30" {
		t.Fatalf("all total %s", window.TotalsByAsset["GLM"])
	}
}

func TestWeekWindowBounds(t *testing.T) {
	events := []model.Event{
		event("0xa", "10", 3, ts(testNow.AddDate(0, 0, -6)), "GLM"),
		event("0xb", "20", 2, ts(testNow.AddDate(0, 0, -8)), "GLM"),
	}

	window := Compute(events, Params{Period: model.PeriodWeek, Now: testNow, Location: time.UTC})

	if window.EventCount != 1 {
		t.Fatalf("week window kept %d events, want 1", window.EventCount)
	}
}
