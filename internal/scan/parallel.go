package scan

import (
	"context"
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// workItem is one candidate of the current window.
type workItem struct {
	Index     int
	Candidate *big.Int
}

// Parallel scans [lo, hi] in consecutive windows of the given size. Inside a
// window, candidates are tested concurrently by numWorkers workers; the window
// result is the smallest accepted candidate, so the overall result equals what
// Sequential returns. Candidates above an already accepted or failed one are
// skipped, but candidates below it are still tested; this may issue a few
// queries Sequential would not have made.
//
// Args:
//   - numWorkers: number of parallel workers (0 = auto-detect based on CPU cores)
//   - window: candidates per window (0 = 4 per worker)
func Parallel(ctx context.Context, lo, hi *big.Int, accept Predicate, numWorkers, window int) (*big.Int, error) {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if window <= 0 {
		window = numWorkers * 4
	}

	start := new(big.Int).Set(lo)
	remaining := new(big.Int)
	for start.Cmp(hi) <= 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "scan cancelled")
		}

		count := window
		remaining.Sub(hi, start)
		if remaining.IsInt64() && remaining.Int64() < int64(window) {
			count = int(remaining.Int64()) + 1
		}

		idx, err := scanWindow(ctx, start, count, accept, numWorkers)
		if err != nil {
			return nil, err
		}
		if idx >= 0 {
			return new(big.Int).Add(start, big.NewInt(int64(idx))), nil
		}
		start.Add(start, big.NewInt(int64(count)))
	}
	return nil, nil
}

// scanWindow tests start .. start+count-1 and returns the index of the smallest
// accepted candidate, or -1. A predicate error only ends the scan when no
// smaller candidate was accepted, as Sequential would have stopped there.
func scanWindow(ctx context.Context, start *big.Int, count int, accept Predicate, numWorkers int) (int, error) {
	workChan := make(chan workItem, count)
	hits := make([]bool, count)
	errs := make([]error, count)

	// best holds the smallest index that was accepted or failed so far.
	best := int64(count)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, workChan, accept, hits, errs, &best)
		}()
	}

	for i := 0; i < count; i++ {
		workChan <- workItem{
			Index:     i,
			Candidate: new(big.Int).Add(start, big.NewInt(int64(i))),
		}
	}
	close(workChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return -1, errors.Wrap(err, "scan cancelled")
	}

	// Every index up to best was tested, so the first outcome found here is
	// the one a sequential scan would have stopped at.
	for i := 0; i < count && int64(i) <= best; i++ {
		if hits[i] {
			return i, nil
		}
		if errs[i] != nil {
			return -1, errs[i]
		}
	}
	return -1, nil
}

// worker processes work items from the work channel
func worker(
	ctx context.Context,
	workChan <-chan workItem,
	accept Predicate,
	hits []bool,
	errs []error,
	best *int64,
) {
	for work := range workChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if int64(work.Index) > atomic.LoadInt64(best) {
			continue
		}

		ok, err := accept(work.Candidate)
		switch {
		case err != nil:
			errs[work.Index] = err
		case ok:
			hits[work.Index] = true
		default:
			continue
		}

		for {
			cur := atomic.LoadInt64(best)
			if int64(work.Index) >= cur || atomic.CompareAndSwapInt64(best, cur, int64(work.Index)) {
				break
			}
		}
	}
}
