// Package wave provides the worker pool that fans lattice passes out across
// disjoint index ranges and joins them at a per-call barrier.
package wave

import (
	"fmt"
	"runtime"
	"sync"
)

// Scheduler owns a fixed set of persistent worker goroutines. Each call to
// Sum or Each partitions [0, n) into at most Workers contiguous ranges, hands
// every range to one worker, and blocks until all ranges have completed. No
// index is visited by more than one worker within a call, so callers need no
// per-element synchronization.
type Scheduler struct {
	workers int
	jobs    chan rangeJob

	closeOnce sync.Once
}

type rangeJob struct {
	start, end int
	idx        int
	fn         func(start, end int) float64
	partials   []float64
	wg         *sync.WaitGroup
}

// NewScheduler starts a pool of the given size. Zero selects the available
// hardware parallelism; a negative count is a construction error.
func NewScheduler(workers int) (*Scheduler, error) {
	if workers < 0 {
		return nil, fmt.Errorf("worker count must be >= 0, got %d", workers)
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	s := &Scheduler{
		workers: workers,
		jobs:    make(chan rangeJob),
	}
	for i := 0; i < workers; i++ {
		go s.run()
	}
	return s, nil
}

func (s *Scheduler) run() {
	for job := range s.jobs {
		job.partials[job.idx] = job.fn(job.start, job.end)
		job.wg.Done()
	}
}

// Workers reports the pool size.
func (s *Scheduler) Workers() int { return s.workers }

// Sum evaluates fn over disjoint ranges covering [0, n) and combines the
// per-range partial results in range order on the calling goroutine. The
// reduction order is therefore fixed: repeated calls over identical state
// produce bit-identical sums regardless of worker interleaving.
func (s *Scheduler) Sum(n int, fn func(start, end int) float64) float64 {
	if n <= 0 {
		return 0
	}

	spans := s.split(n)
	partials := make([]float64, len(spans))

	var wg sync.WaitGroup
	wg.Add(len(spans))
	for i, span := range spans {
		s.jobs <- rangeJob{
			start:    span[0],
			end:      span[1],
			idx:      i,
			fn:       fn,
			partials: partials,
			wg:       &wg,
		}
	}
	wg.Wait()

	total := 0.0
	for _, partial := range partials {
		total += partial
	}
	return total
}

// Each runs fn over disjoint ranges covering [0, n) and waits for the
// barrier. Used for passes that mutate in place and produce no reduction.
func (s *Scheduler) Each(n int, fn func(start, end int)) {
	s.Sum(n, func(start, end int) float64 {
		fn(start, end)
		return 0
	})
}

// split partitions [0, n) into contiguous near-equal ranges, one per worker,
// never more ranges than elements.
func (s *Scheduler) split(n int) [][2]int {
	count := s.workers
	if count > n {
		count = n
	}

	spans := make([][2]int, 0, count)
	chunk := n / count
	extra := n % count
	start := 0
	for i := 0; i < count; i++ {
		end := start + chunk
		if i < extra {
			end++
		}
		spans = append(spans, [2]int{start, end})
		start = end
	}
	return spans
}

// Close releases the pool. A closed scheduler must not be used again.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.jobs)
	})
}
