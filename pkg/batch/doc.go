// Package batch drives the multi-page fetch of an unbounded feature query.
//
// The service caps every response at a fixed record count and reports
// continuation through an exceededTransferLimit flag, so the total page count
// is unknown up front. The scheduler keeps a bounded window of page fetches
// in flight, dispatching offsets speculatively and monotonically while
// completions arrive in any order.
//
// Completed pages are buffered by offset and drained into the output only
// when contiguous from the last aggregated offset: no record is ever emitted
// out of source order, regardless of network completion order. A page whose
// fetch attempts are all spent leaves a permanent hole; records above the
// hole stay buffered and are discarded with the run.
//
// Example usage:
//
//	scheduler := batch.NewScheduler(fetcher, batch.DefaultConfig(), logger)
//	result, err := scheduler.FetchAll(ctx)
//
// The scheduler:
//   - Keeps at most MaxConcurrent fetches in flight
//   - Suspends on whichever in-flight fetch settles first
//   - Emits records strictly in ascending offset order
//   - Reports monotonic progress to an optional observer each iteration
//   - Returns partial data when some offsets fail (gap logged, not fatal)
package batch
