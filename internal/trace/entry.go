package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ilkecan/manyverse/internal/scope"
)

// Domain prefixes the hashed form of an entry. The version suffix allows
// changing the id scheme without colliding with stored ids.
const Domain = "manyverse/trace/v1"

// Kind tells reducer applications from effect emissions.
type Kind string

const (
	KindState  Kind = "state"
	KindEffect Kind = "effect"
)

// Entry is one recorded step of a run.
//
// Seq is a logical clock shared by every entry of a session; wall-clock
// time is never recorded so runs replay byte-identically.
type Entry struct {
	ID      string `json:"id"`
	Session string `json:"session"`
	Seq     int64  `json:"seq"`
	Kind    Kind   `json:"kind"`
	Scope   string `json:"scope"`
	Bucket  string `json:"bucket,omitempty"`
	Payload Value  `json:"payload"`
}

// Key is the scoped bucket key of an effect entry.
func (e Entry) Key() string {
	return scope.BucketKey(e.Scope, e.Bucket)
}

// NewEntry builds an entry and computes its id. v is converted with
// FromAny.
func NewEntry(session string, seq int64, kind Kind, ns, bucket string, v any) (Entry, error) {
	payload, err := FromAny(v)
	if err != nil {
		return Entry{}, fmt.Errorf("trace payload for %s %q: %w", kind, scope.BucketKey(ns, bucket), err)
	}
	e := Entry{Session: session, Seq: seq, Kind: kind, Scope: ns, Bucket: bucket, Payload: payload}
	id, err := EntryID(e)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id
	return e, nil
}

// EntryID is the content address of e: SHA-256 over Domain, a zero byte,
// and the canonical JSON of every field but the id.
func EntryID(e Entry) (string, error) {
	body, err := Marshal(Object{
		"session": String(e.Session),
		"seq":     Int(e.Seq),
		"kind":    String(e.Kind),
		"scope":   String(e.Scope),
		"bucket":  String(e.Bucket),
		"payload": e.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("entry id: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(Domain))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
