// Package lens provides paired get/set accessors that scope a slice of a
// larger state value.
//
// A Lens must satisfy, for every whole w and slice s:
//
//	Get(Set(w, s)) == s
//	Set(w, Get(w)) == w   (when Get reports the slice present)
//
// and Set must leave every field outside its slice untouched. Isolation
// relies on that last property to keep sibling modules from corrupting each
// other's state.
package lens

// Lens scopes a slice S of a whole W.
//
// Get reports false when the slice is absent from the whole (for example a
// nil map entry or an uninitialized optional field). Set must return a new
// whole; it never mutates w in place.
type Lens[W, S any] struct {
	Get func(w W) (S, bool)
	Set func(w W, s S) W
}

// New builds a lens from a getter that is always present and a setter.
func New[W, S any](get func(W) S, set func(W, S) W) Lens[W, S] {
	return Lens[W, S]{
		Get: func(w W) (S, bool) { return get(w), true },
		Set: set,
	}
}

// Identity returns the lens that scopes the whole value.
func Identity[W any]() Lens[W, W] {
	return New(
		func(w W) W { return w },
		func(_ W, s W) W { return s },
	)
}

// Compose nests inner inside outer: the result scopes inner's slice of
// outer's slice. Compositions can be nested to any depth.
//
// Setting through the composition on a whole whose outer slice is absent
// starts from the zero value of the middle type.
func Compose[W, M, S any](outer Lens[W, M], inner Lens[M, S]) Lens[W, S] {
	return Lens[W, S]{
		Get: func(w W) (S, bool) {
			m, ok := outer.Get(w)
			if !ok {
				var zero S
				return zero, false
			}
			return inner.Get(m)
		},
		Set: func(w W, s S) W {
			m, _ := outer.Get(w)
			return outer.Set(w, inner.Set(m, s))
		},
	}
}

// Key scopes one entry of a map. The map is copied on Set so the previous
// whole is never mutated.
func Key[K comparable, V any](k K) Lens[map[K]V, V] {
	return Lens[map[K]V, V]{
		Get: func(m map[K]V) (V, bool) {
			v, ok := m[k]
			return v, ok
		},
		Set: func(m map[K]V, v V) map[K]V {
			next := make(map[K]V, len(m)+1)
			for mk, mv := range m {
				next[mk] = mv
			}
			next[k] = v
			return next
		},
	}
}

// Pointer scopes the value behind an optional pointer field. Get reports
// absent for nil; Set stores a pointer to a fresh copy.
func Pointer[W, S any](get func(W) *S, set func(W, *S) W) Lens[W, S] {
	return Lens[W, S]{
		Get: func(w W) (S, bool) {
			p := get(w)
			if p == nil {
				var zero S
				return zero, false
			}
			return *p, true
		},
		Set: func(w W, s S) W {
			cp := s
			return set(w, &cp)
		},
	}
}
