package testutil

import (
	"errors"
	"sync"
	"time"

	"github.com/ilkecan/manyverse/internal/stream"
)

// ErrTimeout is returned by CountingPoster.Wait.
var ErrTimeout = errors.New("testutil: timed out waiting for posts")

// CountingPoster forwards to a Poster and counts the tasks handed to it,
// so a caller can wait for work that other goroutines post back.
//
// Thread-safety: safe for concurrent use.
type CountingPoster struct {
	next stream.Poster

	mu    sync.Mutex
	cond  *sync.Cond
	posts int
}

// NewCountingPoster wraps next.
func NewCountingPoster(next stream.Poster) *CountingPoster {
	p := &CountingPoster{next: next}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Post implements stream.Poster.
func (p *CountingPoster) Post(task func()) bool {
	ok := p.next.Post(task)
	if ok {
		p.mu.Lock()
		p.posts++
		p.cond.Broadcast()
		p.mu.Unlock()
	}
	return ok
}

// Posts returns the number of accepted tasks.
func (p *CountingPoster) Posts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posts
}

// Wait blocks until at least n tasks were accepted or timeout passes.
func (p *CountingPoster) Wait(n int, timeout time.Duration) error {
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	deadline := time.Now().Add(timeout)
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.posts < n {
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		p.cond.Wait()
	}
	return nil
}
