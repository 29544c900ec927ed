package batch

import "math"

// Progress is a completion estimate for one load run. Values are
// non-decreasing across reports within a run.
type Progress struct {
	// Loaded is the number of records aggregated into the ordered output.
	// Records still buffered out of order do not count.
	Loaded int `json:"loaded"`

	// EstimatedTotal tracks the running fetch count while more data may
	// exist; once the terminal page is aggregated it is exact and frozen.
	EstimatedTotal int `json:"estimated_total"`

	// Percent is capped at 99 until the run is done, then 100.
	Percent int `json:"percent"`
}

// Observer consumes progress updates after each scheduler iteration.
type Observer func(Progress)

// progressTracker derives Progress from fetch state and saturates it so the
// reported values never decrease, even when the estimate grows faster than
// the aggregated output.
type progressTracker struct {
	observer    Observer
	last        Progress
	frozenTotal int
	frozen      bool
}

func newProgressTracker(observer Observer) *progressTracker {
	return &progressTracker{observer: observer}
}

// report computes the next Progress and invokes the observer (if any).
func (p *progressTracker) report(loaded, totalFetched int, hasMore bool) Progress {
	estimated := totalFetched
	if !hasMore && !p.frozen {
		p.frozen = true
		p.frozenTotal = totalFetched
	}
	if p.frozen {
		estimated = p.frozenTotal
	}

	var percent int
	switch {
	case !hasMore:
		percent = 100
	case estimated == 0:
		percent = 0
	default:
		percent = int(math.Round(float64(loaded) / float64(estimated) * 100))
		if percent > 99 {
			percent = 99
		}
	}

	// Saturate against the previous report.
	if loaded < p.last.Loaded {
		loaded = p.last.Loaded
	}
	if estimated < p.last.EstimatedTotal {
		estimated = p.last.EstimatedTotal
	}
	if percent < p.last.Percent {
		percent = p.last.Percent
	}

	prog := Progress{Loaded: loaded, EstimatedTotal: estimated, Percent: percent}
	p.last = prog

	if p.observer != nil {
		p.observer(prog)
	}

	return prog
}
