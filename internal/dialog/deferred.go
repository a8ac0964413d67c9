package dialog

import (
	"context"
	"sync"
)

// Deferred is the handle returned to an imperative caller. It resolves
// exactly once.
type Deferred struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

func (d *Deferred) resolve(o Outcome) bool {
	resolved := false
	d.once.Do(func() {
		d.outcome = o
		close(d.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the outcome is known.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Outcome returns the outcome if resolved.
func (d *Deferred) Outcome() (Outcome, bool) {
	select {
	case <-d.done:
		return d.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the dialog is resolved or ctx is done. Never call Wait
// on the loop goroutine: resolution is delivered through the loop.
func (d *Deferred) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-d.done:
		return d.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
