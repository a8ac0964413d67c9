package transport

import (
	"log/slog"
	"sync"
)

// Firewall decides which remote peers may connect.
//
// Thread-safety: safe for concurrent use.
type Firewall struct {
	mu            sync.Mutex
	rejectUnknown bool
	known         map[string]bool
}

// NewFirewall creates a firewall. With rejectUnknown set only allowed keys
// are admitted.
func NewFirewall(rejectUnknown bool) *Firewall {
	return &Firewall{rejectUnknown: rejectUnknown, known: make(map[string]bool)}
}

// Reconfigure switches strangers on or off.
func (f *Firewall) Reconfigure(rejectUnknown bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectUnknown != rejectUnknown {
		slog.Info("firewall reconfigured", "rejectUnknown", rejectUnknown)
	}
	f.rejectUnknown = rejectUnknown
}

// RejectUnknown reports the current setting.
func (f *Firewall) RejectUnknown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rejectUnknown
}

// Allow marks key as known.
func (f *Firewall) Allow(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known[key] = true
}

// Admit reports whether a peer with key may connect.
func (f *Firewall) Admit(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.rejectUnknown {
		return true
	}
	return key != "" && f.known[key]
}
