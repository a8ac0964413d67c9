package stream

import (
	"context"
	"sync"
)

// Poster schedules work on the loop goroutine. Implemented by engine.Engine.
type Poster interface {
	Post(task func()) bool
}

type chanOp[T any] struct {
	loop   Poster
	ch     <-chan T
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    int
}

func (c *chanOp[T]) Start(out Sink[T]) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	live := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.gen == gen && c.cancel != nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-c.ch:
				if !ok {
					c.loop.Post(func() {
						if live() {
							out.Complete()
						}
					})
					return
				}
				c.loop.Post(func() {
					if live() {
						out.Next(v)
					}
				})
			}
		}
	}()
}

func (c *chanOp[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// FromChan bridges a Go channel into the loop. A goroutine reads ch while
// the stream is running and posts every value to loop; values therefore
// arrive in channel order on the loop goroutine. Closing ch completes the
// stream.
func FromChan[T any](loop Poster, ch <-chan T) *Stream[T] {
	return New[T](&chanOp[T]{loop: loop, ch: ch})
}
