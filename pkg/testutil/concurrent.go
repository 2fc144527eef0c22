package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
)

// ConcurrentResult counts outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
}

// Total returns the number of calls made.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// RunConcurrent calls fn from n goroutines released together and buckets
// the results. Claim races, double approvals and duplicate domain writes
// surface as Conflicts.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var res ConcurrentResult
	race(n, fn, func(err error) {
		switch {
		case err == nil:
			atomic.AddInt32(&res.Successes, 1)
		case IsConflict(err):
			atomic.AddInt32(&res.Conflicts, 1)
		case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
			atomic.AddInt32(&res.NotFounds, 1)
		default:
			atomic.AddInt32(&res.Errors, 1)
		}
	})
	return &res
}

// RunConcurrentCollect is RunConcurrent for callers that need the raw errors.
func RunConcurrentCollect(n int, fn func(idx int) error) (successes int32, errs []error) {
	var mu sync.Mutex
	race(n, fn, func(err error) {
		if err == nil {
			atomic.AddInt32(&successes, 1)
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	return successes, errs
}

// IsConflict reports whether err is one of the "somebody else won" errors.
func IsConflict(err error) bool {
	return errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrAlreadyUsed) ||
		dErrors.HasCode(err, dErrors.CodeConflict)
}

func race(n int, fn func(idx int) error, record func(error)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			record(fn(i))
		}()
	}
	close(start)
	wg.Wait()
}
