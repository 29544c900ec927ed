package batch

import (
	"sort"

	"github.com/wildhealth/cwd-dashboard/pkg/gis"
)

// fetchState is the bookkeeping for one load run. It is owned exclusively by
// the scheduler loop, created at run start and discarded when the run ends;
// it is never reused across runs.
type fetchState struct {
	batchSize int

	// completed buffers pages that settled successfully but are not yet
	// aggregated, keyed by offset. Drained in ascending offset order.
	completed map[int]*gis.Page

	// inFlight tracks dispatched offsets that have not settled.
	inFlight map[int]struct{}

	// failed holds offsets that exhausted their retry budget. Each one is a
	// permanent hole: no higher offset can ever be aggregated past it.
	failed map[int]struct{}

	// nextFetchOffset is the smallest offset not yet dispatched. Advances by
	// batchSize at dispatch time, never on completion.
	nextFetchOffset int

	// nextAggregateOffset is the smallest offset not yet appended to the
	// output. Advances only over contiguous completed pages.
	nextAggregateOffset int

	// hasMore turns false exactly once: when the page at nextAggregateOffset
	// is aggregated and its ExceededTransferLimit flag is false.
	hasMore bool

	// totalFetched counts records across all completed pages, including
	// pages still buffered out of order. Monitoring only.
	totalFetched int
}

func newFetchState(batchSize int) *fetchState {
	return &fetchState{
		batchSize: batchSize,
		completed: make(map[int]*gis.Page),
		inFlight:  make(map[int]struct{}),
		failed:    make(map[int]struct{}),
		hasMore:   true,
	}
}

// failedOffsets returns the failed set in ascending order.
func (st *fetchState) failedOffsets() []int {
	offsets := make([]int, 0, len(st.failed))
	for offset := range st.failed {
		offsets = append(offsets, offset)
	}
	sort.Ints(offsets)
	return offsets
}
