package fetch

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(1, 12000, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []HeightRange{
		{From: 1, To: 5000},
		{From: 5001, To: 10000},
		{From: 10001, To: 12000},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(100, 100, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []HeightRange{{From: 100, To: 100}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeExactMultiple(t *testing.T) {
	got, err := SplitRange(1, 10000, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []HeightRange{
		{From: 1, To: 5000},
		{From: 5001, To: 10000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

// Windows must cover the input exactly: no gaps, no overlaps, regardless of
// whether the span divides evenly.
func TestSplitRangeCoverage(t *testing.T) {
	cases := []struct {
		from, to, size uint64
	}{
		{0, 0, 1},
		{0, 9999, 5000},
		{7, 12345, 1000},
		{100, 105, 2},
		{5, 5, 10},
	}

	for _, tc := range cases {
		windows, err := SplitRange(tc.from, tc.to, tc.size)
		if err != nil {
			t.Fatalf("SplitRange(%d,%d,%d): %v", tc.from, tc.to, tc.size, err)
		}

		next := tc.from
		for _, w := range windows {
			if w.From != next {
				t.Fatalf("gap or overlap at %d: window starts at %d", next, w.From)
			}
			if w.To < w.From {
				t.Fatalf("inverted window %+v", w)
			}
			if w.To-w.From+1 > tc.size {
				t.Fatalf("window %+v exceeds size %d", w, tc.size)
			}
			next = w.To + 1
		}
		if next != tc.to+1 {
			t.Fatalf("coverage ends at %d, want %d", next-1, tc.to)
		}
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero window size")
	}
}
