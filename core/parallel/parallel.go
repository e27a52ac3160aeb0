// Package parallel runs index ranges across goroutines. Callers write results
// into disjoint slots of a pre-sized slice, so no locking is needed.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into one contiguous range per CPU core and
// calls fn for each range concurrently. It returns when every range is done.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWorkers(items, 0, fn)
}

// ParallelizeWorkers is Parallelize with an explicit worker count.
// workers <= 0 means runtime.NumCPU(); workers == 1 runs fn inline.
func ParallelizeWorkers(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
