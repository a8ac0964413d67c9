package transport

import (
	"context"
	"fmt"
	"sync"
)

// Channel is an in-process transport: the bridge between an app's UI and
// its embedded backend.
type Channel struct {
	name string
	mu   sync.Mutex
	live map[string]func(Conn)
}

// NewChannel creates a channel transport. name identifies the bridge in
// logs ("rn-bridge", "ipc").
func NewChannel(name string) *Channel {
	return &Channel{name: name, live: make(map[string]func(Conn))}
}

// Name implements Transport.
func (*Channel) Name() string { return "channel" }

// Bridge returns the bridge name given to NewChannel.
func (c *Channel) Bridge() string { return c.name }

// Dial implements Transport.
func (c *Channel) Dial(ctx context.Context, addr string) (Conn, error) {
	c.mu.Lock()
	accept, ok := c.live[addr]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: nothing listening on %q", c.name, addr)
	}
	client, server := Pipe()
	go accept(server)
	return client, nil
}

// Listen implements Transport.
func (c *Channel) Listen(_ context.Context, addr string, accept func(Conn)) (Listener, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.live[addr]; taken {
		return nil, fmt.Errorf("%s: %q already in use", c.name, addr)
	}
	c.live[addr] = accept
	return &channelListener{c: c, addr: addr}, nil
}

type channelListener struct {
	c    *Channel
	addr string
	once sync.Once
}

func (l *channelListener) Addr() string { return l.addr }

func (l *channelListener) Close() error {
	l.once.Do(func() {
		l.c.mu.Lock()
		delete(l.c.live, l.addr)
		l.c.mu.Unlock()
	})
	return nil
}

type pipeEnd struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns two connected in-memory connections.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	closed := make(chan struct{})
	once := &sync.Once{}
	a := &pipeEnd{in: ba, out: ab, closed: closed, once: once}
	b := &pipeEnd{in: ab, out: ba, closed: closed, once: once}
	return a, b
}

func (p *pipeEnd) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-p.closed:
		// Drain what the peer sent before closing.
		select {
		case data := <-p.in:
			return data, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) WriteMessage(ctx context.Context, data []byte) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	buf := append([]byte(nil), data...)
	select {
	case p.out <- buf:
		return nil
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (*pipeEnd) RemoteKey() string { return "" }

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
