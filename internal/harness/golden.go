package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ilkecan/manyverse/internal/trace"
)

// EffectLines renders effect entries one per line as
// "<scope>#<bucket> <canonical payload>".
func EffectLines(entries []trace.Entry) []string {
	var out []string
	for _, e := range entries {
		if e.Kind != trace.KindEffect {
			continue
		}
		out = append(out, e.Key()+" "+render(e.Payload))
	}
	return out
}

// RunWithGolden executes a scenario and compares its effects against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Only effects are compared. State snapshots are checked with final_state
// assertions instead.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	var buf strings.Builder
	for _, line := range EffectLines(result.Trace) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(buf.String()))
}
