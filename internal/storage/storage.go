// Package storage is the persisted key/value collaborator: modules emit
// commands on the storage bucket and read items through the Source.
//
// Backends may block (disk); the driver runs them on a worker so the loop
// never does. Commands and reads share that worker, so a read observes every
// command emitted before it.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ilkecan/manyverse/internal/stream"
)

// Kind is the command type.
type Kind string

const (
	SetItem    Kind = "setItem"
	RemoveItem Kind = "removeItem"
	Clear      Kind = "clear"
)

// Command is emitted on the storage bucket.
type Command struct {
	Type  Kind   `json:"type"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// Item is the result of a read. Found is false when the key is absent.
type Item struct {
	Key   string
	Value string
	Found bool
}

// Backend persists items.
type Backend interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ErrUnknownCommand is returned for a command with an unknown type.
var ErrUnknownCommand = errors.New("storage: unknown command")

// Exec applies cmd to backend.
func Exec(ctx context.Context, backend Backend, cmd Command) error {
	switch cmd.Type {
	case SetItem:
		return backend.SetItem(ctx, cmd.Key, cmd.Value)
	case RemoveItem:
		return backend.RemoveItem(ctx, cmd.Key)
	case Clear:
		return backend.Clear(ctx)
	default:
		return ErrUnknownCommand
	}
}

// Driver connects the storage bucket and source to a Backend.
type Driver struct {
	ctx     context.Context
	backend Backend
	worker  stream.Poster
	loop    stream.Poster
}

// NewDriver creates a driver. Backend calls are posted to worker, results
// are posted back to loop.
func NewDriver(ctx context.Context, backend Backend, worker, loop stream.Poster) *Driver {
	return &Driver{ctx: ctx, backend: backend, worker: worker, loop: loop}
}

// Consume executes every command of cmds in order. Failures are logged and
// skipped.
func (d *Driver) Consume(cmds *stream.Stream[Command]) *stream.Subscription {
	return stream.OrNever(cmds).Subscribe(stream.Listener[Command]{
		Next: func(cmd Command) {
			d.worker.Post(func() {
				if err := Exec(d.ctx, d.backend, cmd); err != nil {
					slog.Error("storage command failed", "type", cmd.Type, "key", cmd.Key, "error", err)
				}
			})
		},
		Error: func(err error) {
			slog.Error("storage command stream failed", "error", err)
		},
	})
}

// Source returns the read side.
func (d *Driver) Source() Source {
	return Source{d: d}
}

// Source reads items. The zero Source never emits.
type Source struct {
	d *Driver
}

// GetItem reads key once per start and completes. A failed read is logged
// and completes without a value.
func (s Source) GetItem(key string) *stream.Stream[Item] {
	if s.d == nil {
		return stream.Never[Item]()
	}
	return stream.New[Item](&getItemOp{d: s.d, key: key})
}

type getItemOp struct {
	d   *Driver
	key string
	gen int
}

func (g *getItemOp) Start(out stream.Sink[Item]) {
	g.gen++
	gen := g.gen
	d := g.d
	key := g.key

	d.worker.Post(func() {
		value, found, err := d.backend.GetItem(d.ctx, key)
		d.loop.Post(func() {
			if g.gen != gen {
				return
			}
			if err != nil {
				slog.Error("storage read failed", "key", key, "error", err)
				out.Complete()
				return
			}
			out.Next(Item{Key: key, Value: value, Found: found})
			out.Complete()
		})
	})
}

func (g *getItemOp) Stop() {
	g.gen++
}

// Memory is a Backend kept in memory.
//
// Thread-safety: safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemory creates a Memory backend holding initial.
func NewMemory(initial map[string]string) *Memory {
	m := &Memory{items: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.items[k] = v
	}
	return m
}

// GetItem implements Backend.
func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem implements Backend.
func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

// RemoveItem implements Backend.
func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Clear implements Backend.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]string)
	return nil
}
