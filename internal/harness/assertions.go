package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ilkecan/manyverse/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes the effect trace as debugging context.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Effects  []trace.Entry // Effect entries of the run
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Effects) > 0 {
		fmt.Fprintf(&buf, "\nEffects:\n")
		for _, line := range EffectLines(e.Effects) {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	effects := result.Effects()

	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(effects, a)
		case AssertTraceOrder:
			err = assertTraceOrder(effects, a)
		case AssertTraceCount:
			err = assertTraceCount(effects, a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		case AssertNavigation:
			err = assertNavigation(result.Screens, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return failures
}

// assertTraceContains checks that an effect under the key carries the
// expected payload (subset match).
func assertTraceContains(effects []trace.Entry, a Assertion) error {
	want, err := expected(a.Payload)
	if err != nil {
		return err
	}

	for _, e := range effects {
		if e.Key() == a.Key && (want == nil || matches(e.Payload, want)) {
			return nil
		}
	}

	exp := "effect " + a.Key
	if want != nil {
		exp += " with payload " + render(want)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: exp,
		Actual:   "not found in trace",
		Effects:  effects,
	}
}

// assertTraceOrder checks that the keys appear as a subsequence of the
// effect trace. Intervening effects are allowed.
func assertTraceOrder(effects []trace.Entry, a Assertion) error {
	next := 0
	for _, e := range effects {
		if next < len(a.Keys) && e.Key() == a.Keys[next] {
			next++
		}
	}
	if next == len(a.Keys) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("effects in order: %v", a.Keys),
		Actual:   fmt.Sprintf("missing %s after %v", a.Keys[next], a.Keys[:next]),
		Effects:  effects,
	}
}

// assertTraceCount checks the exact number of effects under the key.
func assertTraceCount(effects []trace.Entry, a Assertion) error {
	count := 0
	for _, e := range effects {
		if e.Key() == a.Key {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Key),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Effects:  effects,
		}
	}
	return nil
}

// assertFinalState checks the value at a dotted path of the final state.
// Objects are matched as subsets.
func assertFinalState(state trace.Value, a Assertion) error {
	want, err := expected(a.Expect)
	if err != nil {
		return err
	}
	if want == nil {
		want = trace.Null{}
	}

	got, ok := lookup(state, a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
			Actual:   "path not found",
		}
	}
	if !matches(got, want) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
			Actual:   render(got),
		}
	}
	return nil
}

// assertNavigation checks the final navigation stack, bottom first.
func assertNavigation(screens []string, a Assertion) error {
	if slices.Equal(screens, a.Screens) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNavigation,
		Expected: fmt.Sprintf("screens %v", a.Screens),
		Actual:   fmt.Sprintf("screens %v", screens),
	}
}

func expected(v any) (trace.Value, error) {
	if v == nil {
		return nil, nil
	}
	out, err := trace.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("expected value: %w", err)
	}
	return out, nil
}

// matches reports whether got contains want. Object keys absent from want
// are ignored; arrays must have the same length.
func matches(got, want trace.Value) bool {
	switch w := want.(type) {
	case trace.Object:
		g, ok := got.(trace.Object)
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !matches(gv, wv) {
				return false
			}
		}
		return true
	case trace.Array:
		g, ok := got.(trace.Array)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !matches(g[i], w[i]) {
				return false
			}
		}
		return true
	default:
		return got == want
	}
}

// lookup walks a dotted path. Numeric segments index arrays.
func lookup(v trace.Value, path string) (trace.Value, bool) {
	for _, seg := range strings.Split(path, ".") {
		switch cur := v.(type) {
		case trace.Object:
			next, ok := cur[seg]
			if !ok {
				return nil, false
			}
			v = next
		case trace.Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur) {
				return nil, false
			}
			v = cur[i]
		default:
			return nil, false
		}
	}
	return v, true
}

func render(v trace.Value) string {
	data, err := trace.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
