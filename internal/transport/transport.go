// Package transport provides the connections the app's backend is reached
// over, chosen by platform capability.
//
// Transports are registered as factories. Build tries each factory that
// matches the platform; a factory that fails is logged and skipped, and a
// later registration under the same name takes its place.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Capability names a platform a transport can run on.
type Capability string

const (
	Mobile  Capability = "mobile"
	Desktop Capability = "desktop"
)

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("transport: connection closed")

// Conn is a message-oriented connection.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	// RemoteKey is the public key of the peer, empty when unknown.
	RemoteKey() string
	Close() error
}

// Transport dials and listens.
type Transport interface {
	Name() string
	Dial(ctx context.Context, addr string) (Conn, error)
	// Listen accepts connections at addr until the returned listener is
	// closed. accept runs on its own goroutine per connection.
	Listen(ctx context.Context, addr string, accept func(Conn)) (Listener, error)
}

// Listener is a running Listen.
type Listener interface {
	io.Closer
	Addr() string
}

// Transform wraps connections, e.g. to authenticate them.
type Transform interface {
	Name() string
	Wrap(c Conn) (Conn, error)
}

// Factory constructs a transport.
type Factory func() (Transport, error)

// TransformFactory constructs a transform.
type TransformFactory func() (Transform, error)

type registration struct {
	name   string
	caps   []Capability
	create Factory
}

type transformRegistration struct {
	name   string
	create TransformFactory
}

// Registry holds transport and transform factories.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	transports []registration
	transforms []transformRegistration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Transport registers a transport factory for caps. No caps means every
// platform.
func (r *Registry) Transport(name string, create Factory, caps ...Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports = append(r.transports, registration{name: name, caps: caps, create: create})
}

// Transform registers a transform factory.
func (r *Registry) Transform(name string, create TransformFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms = append(r.transforms, transformRegistration{name: name, create: create})
}

// Set is the result of Build.
type Set struct {
	Transports []Transport
	Transforms []Transform
}

// Get returns the transport named name.
func (s Set) Get(name string) (Transport, bool) {
	for _, t := range s.Transports {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Names returns the transport names in registration order.
func (s Set) Names() []string {
	out := make([]string, len(s.Transports))
	for i, t := range s.Transports {
		out[i] = t.Name()
	}
	return out
}

// Wrap applies every transform to c in order.
func (s Set) Wrap(c Conn) (Conn, error) {
	for _, tf := range s.Transforms {
		wrapped, err := tf.Wrap(c)
		if err != nil {
			c.Close()
			return nil, err
		}
		c = wrapped
	}
	return c, nil
}

// Build constructs the transports available on capability. At most one
// transport is kept per name.
func (r *Registry) Build(capability Capability) Set {
	r.mu.Lock()
	transports := slices.Clone(r.transports)
	transforms := slices.Clone(r.transforms)
	r.mu.Unlock()

	var set Set
	built := make(map[string]bool)
	for _, reg := range transports {
		if built[reg.name] {
			continue
		}
		if len(reg.caps) > 0 && !slices.Contains(reg.caps, capability) {
			continue
		}
		t, err := reg.create()
		if err != nil {
			slog.Warn("transport unavailable, trying next", "name", reg.name, "capability", capability, "error", err)
			continue
		}
		built[reg.name] = true
		set.Transports = append(set.Transports, t)
	}

	for _, reg := range transforms {
		tf, err := reg.create()
		if err != nil {
			slog.Warn("transform unavailable", "name", reg.name, "error", err)
			continue
		}
		set.Transforms = append(set.Transforms, tf)
	}

	slog.Debug("transports built", "capability", capability, "transports", set.Names())
	return set
}
