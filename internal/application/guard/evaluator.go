// Package guard implements the GuardEvaluator application service:
// concurrent, TTL-cached evaluation of named prerequisite conditions
// (§4.3).
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainguard "github.com/GSejas/health-watch-sub002/internal/domain/guard"
)

// Func is one guard implementation: it reports whether its condition
// currently holds. Implementations must not block past EvalTimeout;
// the evaluator enforces that with a context deadline, but a guard
// that ignores ctx cancellation will still make the caller wait.
type Func func(ctx context.Context) (bool, error)

// Evaluator evaluates named guards with a 30 s TTL cache (§4.3).
type Evaluator struct {
	mu     sync.Mutex
	guards map[string]Func
	cache  map[string]domainguard.Result
	now    func() time.Time
}

// New constructs an empty Evaluator.
//
// Returns:
//   - *Evaluator: a new evaluator with no registered guards.
func New() *Evaluator {
	return &Evaluator{
		guards: make(map[string]Func),
		cache:  make(map[string]domainguard.Result),
		now:    time.Now,
	}
}

// Register installs fn as the implementation for the named guard,
// replacing any prior registration and invalidating its cache entry.
//
// Params:
//   - name: the guard's identifier, referenced by Channel.Guards.
//   - fn: the evaluation function.
func (e *Evaluator) Register(name string, fn Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guards[name] = fn
	delete(e.cache, name)
}

// Evaluate runs every guard named in refs, using cached results where
// still fresh, and returns the AND-aggregated outcome (§4.3).
// Evaluations across guards run concurrently.
//
// Params:
//   - ctx: bounds the overall call; individual guards additionally get
//     EvalTimeout.
//   - refs: the guard names to evaluate.
//
// Returns:
//   - domainguard.Aggregate: AllPassed is true only if every named
//     guard passed.
func (e *Evaluator) Evaluate(ctx context.Context, refs []string) domainguard.Aggregate {
	if len(refs) == 0 {
		return domainguard.Aggregate{AllPassed: true}
	}

	results := make([]domainguard.Result, len(refs))
	var wg sync.WaitGroup
	for i, name := range refs {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = e.evaluateOne(ctx, name)
		}(i, name)
	}
	wg.Wait()

	agg := domainguard.Aggregate{AllPassed: true}
	for i, r := range results {
		if !r.Passed {
			agg.AllPassed = false
			agg.Failures = append(agg.Failures, mergeName(refs[i], r.Failure))
		}
	}
	return agg
}

// evaluateOne resolves one guard's result, either from cache or by
// running its Func under EvalTimeout.
func (e *Evaluator) evaluateOne(ctx context.Context, name string) domainguard.Result {
	now := e.now()

	e.mu.Lock()
	fn, registered := e.guards[name]
	cached, hasCached := e.cache[name]
	e.mu.Unlock()

	if hasCached && cached.IsFresh(now) {
		return cached
	}

	if !registered {
		return domainguard.Result{
			Passed: false,
			Failure: domainguard.Failure{
				Name:        name,
				Reason:      domainguard.ReasonException,
				Description: fmt.Sprintf("guard %q is not registered", name),
			},
			EvaluatedAt: now,
		}
	}

	result := e.runWithTimeout(ctx, name, fn, now)

	e.mu.Lock()
	e.cache[name] = result
	e.mu.Unlock()

	return result
}

// runWithTimeout invokes fn under a child context bounded by
// domainguard.EvalTimeout, recovering panics as ReasonException
// (§4.3: "implementations that raise are treated as failed with
// error=exception").
func (e *Evaluator) runWithTimeout(ctx context.Context, name string, fn Func, now time.Time) (result domainguard.Result) {
	result = domainguard.Result{EvaluatedAt: now}

	defer func() {
		if r := recover(); r != nil {
			result = domainguard.Result{
				Passed: false,
				Failure: domainguard.Failure{
					Name:        name,
					Reason:      domainguard.ReasonException,
					Description: fmt.Sprintf("guard %q panicked: %v", name, r),
				},
				EvaluatedAt: now,
			}
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, domainguard.EvalTimeout)
	defer cancel()

	type outcome struct {
		passed bool
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panicked: %v", r)}
			}
		}()
		passed, err := fn(cctx)
		done <- outcome{passed: passed, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return domainguard.Result{
				Passed: false,
				Failure: domainguard.Failure{
					Name:        name,
					Reason:      domainguard.ReasonException,
					Description: o.err.Error(),
				},
				EvaluatedAt: now,
			}
		}
		if !o.passed {
			return domainguard.Result{
				Passed: false,
				Failure: domainguard.Failure{
					Name:        name,
					Reason:      domainguard.ReasonUnmet,
					Description: fmt.Sprintf("guard %q condition not met", name),
				},
				EvaluatedAt: now,
			}
		}
		return domainguard.Result{Passed: true, EvaluatedAt: now}
	case <-cctx.Done():
		return domainguard.Result{
			Passed: false,
			Failure: domainguard.Failure{
				Name:        name,
				Reason:      domainguard.ReasonTimeout,
				Description: fmt.Sprintf("guard %q did not complete within %s", name, domainguard.EvalTimeout),
			},
			EvaluatedAt: now,
		}
	}
}

// mergeName ensures the reported failure carries its guard's name even
// when the result was constructed before the name was known.
func mergeName(name string, f domainguard.Failure) domainguard.Failure {
	if f.Name == "" {
		f.Name = name
	}
	return f
}
