// Package mocks provides centralized test doubles for the store, queue and
// scoring interfaces.
//
// The Memory* types are working in-memory implementations with the same
// semantics as the PostgreSQL stores (oldest-pending claim, idempotent
// terminal writes). Each exposes optional *Fn fields that override a single
// method, so a test can inject a failure without re-implementing the rest:
//
//	tasks := mocks.NewMemoryTaskStore()
//	tasks.MarkCompletedFn = func(ctx context.Context, id int64, v bool, p float64) error {
//	    return errors.New("connection reset")
//	}
//
// TestifyMockScorer is a testify/mock based double for call-expectation style tests.
package mocks
