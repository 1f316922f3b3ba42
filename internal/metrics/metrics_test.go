package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.RecordRPCCall("eth_getLogs", "https://a", nil)
	m.RecordRPCCall("eth_getLogs", "https://a", errors.New("x"))
	m.RecordWindow("ok")
	m.RecordFetch("full", nil)
	m.RecordMerge(3, 1000)
	m.SetHeadHeight(1200)

	if got := testutil.ToFloat64(m.eventsMerged); got != 3 {
		t.Fatalf("events merged %f, want 3", got)
	}
	if got := testutil.ToFloat64(m.cursorHeight); got != 1000 {
		t.Fatalf("cursor height %f, want 1000", got)
	}
	if got := testutil.ToFloat64(m.headHeight); got != 1200 {
		t.Fatalf("head height %f, want 1200", got)
	}
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.RecordRPCCall("eth_blockNumber", "https://a", nil)
	m.RecordWindow("skipped")
	m.RecordFetch("delta", errors.New("x"))
	m.RecordMerge(1, 1)
	m.SetHeadHeight(1)
}
