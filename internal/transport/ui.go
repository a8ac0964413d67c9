package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ilkecan/manyverse/internal/ui"
)

// Frame kinds.
const (
	FrameEvent  = "event"
	FrameRender = "render"
)

// Frame is the wire form of UI traffic between a remote host and the app.
type Frame struct {
	Kind     string `json:"kind"`
	Selector string `json:"selector,omitempty"`
	Type     string `json:"type,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// ErrRejected is returned when the firewall refuses a peer.
var ErrRejected = errors.New("transport: peer rejected by firewall")

// ServeUI reads event frames from c and hands them to deliver until c is
// closed or ctx is done. Malformed frames are logged and skipped.
func ServeUI(ctx context.Context, c Conn, fw *Firewall, deliver func(ui.Event) bool) error {
	defer c.Close()

	if fw != nil && !fw.Admit(c.RemoteKey()) {
		slog.Warn("ui connection rejected", "key", c.RemoteKey())
		return ErrRejected
	}

	for {
		data, err := c.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return fmt.Errorf("read ui frame: %w", err)
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn("malformed ui frame", "error", err)
			continue
		}
		if f.Kind != FrameEvent {
			slog.Debug("ui frame ignored", "kind", f.Kind)
			continue
		}
		if !deliver(ui.Event{Selector: f.Selector, Type: f.Type, Payload: f.Payload}) {
			return nil
		}
	}
}

// SendEvent writes ev as an event frame.
func SendEvent(ctx context.Context, c Conn, ev ui.Event) error {
	return send(ctx, c, Frame{Kind: FrameEvent, Selector: ev.Selector, Type: ev.Type, Payload: ev.Payload})
}

// SendRender writes r as a render frame.
func SendRender(ctx context.Context, c Conn, r ui.Render) error {
	return send(ctx, c, Frame{Kind: FrameRender, Payload: r})
}

func send(ctx context.Context, c Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", f.Kind, err)
	}
	return c.WriteMessage(ctx, data)
}

// DefaultRegistry registers the app's transports: noauth for local
// clients, ws everywhere, and the in-process channel on both platforms.
// A nil bridge makes the channel transport unavailable.
func DefaultRegistry(publicKey string, bridge *Channel) *Registry {
	r := NewRegistry()
	r.Transform("noauth", func() (Transform, error) {
		return NewNoAuth(publicKey)
	})
	r.Transport("ws", func() (Transport, error) {
		return NewWS(publicKey), nil
	})
	r.Transport("channel", func() (Transport, error) {
		if bridge == nil {
			return nil, errors.New("rn-bridge not available")
		}
		return bridge, nil
	}, Mobile)
	r.Transport("channel", func() (Transport, error) {
		if bridge == nil {
			return nil, errors.New("electron ipc not available")
		}
		return bridge, nil
	}, Desktop)
	return r
}
