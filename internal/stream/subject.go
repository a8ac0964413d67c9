package stream

type subjectProducer[T any] struct {
	out Sink[T]
}

func (p *subjectProducer[T]) Start(out Sink[T]) { p.out = out }
func (p *subjectProducer[T]) Stop()             { p.out = nil }

// Subject is an imperatively driven stream. Values sent while no listener is
// attached are dropped.
type Subject[T any] struct {
	*Stream[T]
	prod *subjectProducer[T]
}

// NewSubject creates a Subject.
func NewSubject[T any]() *Subject[T] {
	p := &subjectProducer[T]{}
	return &Subject[T]{Stream: New[T](p), prod: p}
}

// NewMemorySubject creates a Subject that replays its latest value to late
// listeners while it has at least one listener.
func NewMemorySubject[T any]() *Subject[T] {
	p := &subjectProducer[T]{}
	return &Subject[T]{Stream: NewMemory[T](p), prod: p}
}

// Next emits v to current listeners.
func (s *Subject[T]) Next(v T) {
	if s.prod.out != nil {
		s.prod.out.Next(v)
	}
}

// Error terminates the stream with err.
func (s *Subject[T]) Error(err error) {
	if s.prod.out != nil {
		s.prod.out.Error(err)
	}
}

// Complete terminates the stream.
func (s *Subject[T]) Complete() {
	if s.prod.out != nil {
		s.prod.out.Complete()
	}
}

// Active reports whether anybody is listening.
func (s *Subject[T]) Active() bool {
	return s.prod.out != nil
}

type cellProducer[T any] struct {
	c *Cell[T]
}

func (p cellProducer[T]) Start(out Sink[T]) {
	p.c.out = out
	if p.c.has {
		out.Next(p.c.value)
	}
}

func (p cellProducer[T]) Stop() { p.c.out = nil }

// Cell holds a current value. Unlike a memory Subject it keeps the value
// while nobody listens, so every listener starts with the current value.
type Cell[T any] struct {
	value T
	has   bool
	out   Sink[T]
	s     *Stream[T]
}

// NewCell creates an empty cell.
func NewCell[T any]() *Cell[T] {
	c := &Cell[T]{}
	c.s = NewMemory[T](cellProducer[T]{c: c})
	return c
}

// NewCellOf creates a cell holding v.
func NewCellOf[T any](v T) *Cell[T] {
	c := NewCell[T]()
	c.value, c.has = v, true
	return c
}

// Set stores v and emits it.
func (c *Cell[T]) Set(v T) {
	c.value, c.has = v, true
	if c.out != nil {
		c.out.Next(v)
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() (T, bool) {
	return c.value, c.has
}

// Stream returns the cell's stream.
func (c *Cell[T]) Stream() *Stream[T] {
	return c.s
}
