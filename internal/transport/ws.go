package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// KeyHeader carries the dialer's public key on the websocket handshake.
const KeyHeader = "X-Manyverse-Key"

// WS is the websocket transport.
type WS struct {
	key      string
	upgrader websocket.Upgrader
	dialer   websocket.Dialer
}

// NewWS creates a websocket transport announcing key when dialing.
func NewWS(key string) *WS {
	return &WS{
		key: key,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Local clients only; the firewall decides who stays.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Name implements Transport.
func (*WS) Name() string { return "ws" }

// Dial implements Transport. addr is host:port or a ws:// URL.
func (w *WS) Dial(ctx context.Context, addr string) (Conn, error) {
	url := addr
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		url = "ws://" + addr + "/"
	}
	header := http.Header{}
	if w.key != "" {
		header.Set(KeyHeader, w.key)
	}
	c, _, err := w.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("ws dial %s: %w", url, err)
	}
	return &wsConn{c: c}, nil
}

// Listen implements Transport.
func (w *WS) Listen(_ context.Context, addr string, accept func(Conn)) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ws listen %s: %w", addr, err)
	}

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			c, err := w.upgrader.Upgrade(rw, r, nil)
			if err != nil {
				slog.Warn("ws upgrade failed", "remote", r.RemoteAddr, "error", err)
				return
			}
			accept(&wsConn{c: c, key: r.Header.Get(KeyHeader)})
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ws server stopped", "error", err)
		}
	}()

	return &wsListener{srv: srv, addr: ln.Addr().String()}, nil
}

type wsListener struct {
	srv  *http.Server
	addr string
}

func (l *wsListener) Addr() string { return l.addr }

func (l *wsListener) Close() error {
	return l.srv.Close()
}

type wsConn struct {
	c   *websocket.Conn
	key string
	wmu sync.Mutex
}

func (w *wsConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		if err := w.c.SetReadDeadline(dl); err != nil {
			return nil, err
		}
	}
	_, data, err := w.c.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return data, nil
}

func (w *wsConn) WriteMessage(ctx context.Context, data []byte) error {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		if err := w.c.SetWriteDeadline(dl); err != nil {
			return err
		}
	}
	return w.c.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) RemoteKey() string { return w.key }

func (w *wsConn) Close() error {
	w.wmu.Lock()
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.wmu.Unlock()
	return w.c.Close()
}
