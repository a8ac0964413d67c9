// Package scope derives the namespaces isolated modules live in.
//
// Each module identifier yields two disjoint names:
//   - a selector namespace, a "/"-separated path prefix that UI event
//     selectors are matched against, and
//   - a bucket key, "<namespace>#<bucket>", used to label the effect
//     streams a module emits when they are recorded or re-merged.
//
// Sibling identifiers must be unique and may not contain either
// separator; under that rule no two siblings ever share a selector prefix,
// so a UI event reaches at most one of them.
package scope

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PathSeparator joins namespace segments.
	PathSeparator = "/"

	// BucketSeparator joins a namespace and a bucket name.
	BucketSeparator = "#"
)

var (
	// ErrInvalidScope is returned for empty identifiers or identifiers
	// containing a separator.
	ErrInvalidScope = errors.New("invalid scope identifier")

	// ErrDuplicateScope is returned when two siblings claim the same
	// identifier.
	ErrDuplicateScope = errors.New("duplicate scope identifier")
)

// Validate checks that id can be used as a scope identifier.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidScope)
	}
	if strings.Contains(id, PathSeparator) || strings.Contains(id, BucketSeparator) {
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidScope, id)
	}
	return nil
}

// Child returns the namespace of module id mounted under parent.
func Child(parent, id string) string {
	if parent == "" {
		return id
	}
	return parent + PathSeparator + id
}

// Within reports whether a selector path belongs to namespace ns.
// The empty namespace contains every path.
func Within(ns, path string) bool {
	if ns == "" {
		return true
	}
	return path == ns || strings.HasPrefix(path, ns+PathSeparator)
}

// BucketKey labels effect bucket name emitted by the module at ns.
func BucketKey(ns, bucket string) string {
	return ns + BucketSeparator + bucket
}

// SplitBucketKey reverses BucketKey.
func SplitBucketKey(key string) (ns, bucket string, ok bool) {
	i := strings.LastIndex(key, BucketSeparator)
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// Registry hands out sibling namespaces under one parent and refuses
// duplicates. Composition code claims every sibling before wiring it, so
// overlapping scopes are rejected at composition time instead of corrupting
// state at runtime.
type Registry struct {
	parent  string
	claimed map[string]bool
	order   []string
}

// NewRegistry creates a registry for the children of parent.
func NewRegistry(parent string) *Registry {
	return &Registry{parent: parent, claimed: make(map[string]bool)}
}

// Claim reserves id and returns its namespace.
func (r *Registry) Claim(id string) (string, error) {
	if err := Validate(id); err != nil {
		return "", err
	}
	if r.claimed[id] {
		return "", fmt.Errorf("%w: %q under %q", ErrDuplicateScope, id, r.parent)
	}
	r.claimed[id] = true
	r.order = append(r.order, id)
	return Child(r.parent, id), nil
}

// Claimed returns the claimed identifiers in claim order.
func (r *Registry) Claimed() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
