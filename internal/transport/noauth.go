package transport

import "errors"

// NoAuth identifies every connection as the local key without a handshake.
// Only for connections that never leave the device.
type NoAuth struct {
	key string
}

// NewNoAuth creates the transform for publicKey.
func NewNoAuth(publicKey string) (*NoAuth, error) {
	if publicKey == "" {
		return nil, errors.New("noauth: empty public key")
	}
	return &NoAuth{key: publicKey}, nil
}

// Name implements Transform.
func (*NoAuth) Name() string { return "noauth" }

// Wrap implements Transform.
func (n *NoAuth) Wrap(c Conn) (Conn, error) {
	return keyedConn{Conn: c, key: n.key}, nil
}

type keyedConn struct {
	Conn
	key string
}

func (k keyedConn) RemoteKey() string { return k.key }
