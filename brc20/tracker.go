// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package brc20

import (
	"context"
	"sync"
)

// Tracker runs at most one estimation flow at a time. Submitting a request
// cancels the flow that is still running, the way an input form re-estimates
// whenever the ticker, amount, address or rate changes.
type Tracker struct {
	estimator *Estimator

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	latest *Outcome

	wg sync.WaitGroup
}

// NewTracker creates a Tracker.
func NewTracker(estimator *Estimator) *Tracker {
	return &Tracker{estimator: estimator}
}

// Submit starts an estimation flow and supersedes the previous one. The
// returned channel receives the outcome and is closed. Flows that are
// superseded or cancelled close the channel without sending.
func (t *Tracker) Submit(ctx context.Context,
	req *TransferRequest) <-chan Outcome {

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}

	t.seq++
	id := t.seq

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	result := make(chan Outcome, 1)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer close(result)
		defer cancel()

		outcome := t.estimator.Run(ctx, req)

		t.mu.Lock()
		defer t.mu.Unlock()

		if id != t.seq || outcome.State == StateCancelled {
			log.Debugf("Dropping superseded estimate %d", id)
			return
		}

		t.latest = &outcome
		result <- outcome
	}()

	return result
}

// Snapshot returns the outcome of the latest flow that was not superseded.
func (t *Tracker) Snapshot() (Outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.latest == nil {
		return Outcome{}, false
	}

	return *t.latest, true
}

// Stop cancels the running flow and waits for it to return.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	t.wg.Wait()
}
