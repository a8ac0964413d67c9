package stream

type mergeOp[T any] struct {
	ins     []*Stream[T]
	subs    []*Subscription
	left    int
	stopped bool
}

func (m *mergeOp[T]) Start(out Sink[T]) {
	m.stopped = false
	m.left = len(m.ins)
	if m.left == 0 {
		out.Complete()
		return
	}
	m.subs = make([]*Subscription, 0, len(m.ins))
	// Inputs are subscribed in argument order. A single upstream emission
	// that reaches several inputs in the same propagation therefore arrives
	// here in input position order.
	for _, in := range m.ins {
		sub := in.Subscribe(Listener[T]{
			Next:  out.Next,
			Error: out.Error,
			Complete: func() {
				m.left--
				if m.left == 0 {
					out.Complete()
				}
			},
		})
		if m.stopped {
			// Terminated while subscribing.
			sub.Unsubscribe()
			return
		}
		m.subs = append(m.subs, sub)
	}
}

func (m *mergeOp[T]) Stop() {
	m.stopped = true
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
	m.subs = nil
}

// Merge combines streams of the same type into one.
//
// Guarantees:
//   - Every value emitted by an input is emitted exactly once.
//   - Values from the same input keep their relative order.
//   - Values from different inputs keep their emission order.
//   - Values emitted in the same propagation are ordered by input position.
//   - The result completes once every input has completed.
//
// Nil inputs are treated as never-emitting and never-completing.
func Merge[T any](ins ...*Stream[T]) *Stream[T] {
	cp := make([]*Stream[T], len(ins))
	for i, in := range ins {
		cp[i] = OrNever(in)
	}
	return New[T](&mergeOp[T]{ins: cp})
}
