package fetch

import "fmt"

// HeightRange is an inclusive block height range.
type HeightRange struct {
	From uint64
	To   uint64
}

// SplitRange splits an inclusive height range into consecutive windows of at
// most windowSize heights. The union of the returned windows covers the
// input exactly, with no gaps and no overlaps; the last window may be short.
func SplitRange(from, to, windowSize uint64) ([]HeightRange, error) {
	if windowSize == 0 {
		return nil, fmt.Errorf("window size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to height must be >= from height")
	}

	windows := make([]HeightRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= windowSize {
			end = to
		} else {
			end = start + windowSize - 1
		}
		windows = append(windows, HeightRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return windows, nil
}
