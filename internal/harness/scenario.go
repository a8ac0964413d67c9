package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/scope"
)

// Screens a scenario can mount.
const (
	ScreenApp    = "app"
	ScreenThread = "thread"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Screen is the root module: app (default) or thread.
	Screen string `yaml:"screen,omitempty"`

	// Props are the navigation props of the thread screen.
	Props map[string]any `yaml:"props,omitempty"`

	// Session is the trace session id. Defaults to "test-session".
	Session string `yaml:"session,omitempty"`

	Setup Setup `yaml:"setup,omitempty"`

	// Steps run in order after the root module is mounted.
	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Setup is the world before the root module is mounted.
type Setup struct {
	Self    string            `yaml:"self,omitempty"`
	Storage map[string]string `yaml:"storage,omitempty"`
	Log     []Msg             `yaml:"log,omitempty"`
	Peers   []Peer            `yaml:"peers,omitempty"`
}

// Msg is a feed message. Sequence and timestamp are assigned when zero.
type Msg struct {
	Key       string         `yaml:"key"`
	Author    string         `yaml:"author"`
	Sequence  int64          `yaml:"sequence,omitempty"`
	Timestamp int64          `yaml:"timestamp,omitempty"`
	Content   map[string]any `yaml:"content"`
}

// Peer is a connection candidate.
type Peer struct {
	Address string `yaml:"address"`
	Key     string `yaml:"key"`
	Kind    string `yaml:"kind"`
	State   string `yaml:"state"`
}

// Step is one input. Exactly one field is set.
type Step struct {
	UI     *UIStep     `yaml:"ui,omitempty"`
	Bus    *BusStep    `yaml:"bus,omitempty"`
	Back   bool        `yaml:"back,omitempty"`
	Dialog *DialogStep `yaml:"dialog,omitempty"`
	Self   string      `yaml:"self,omitempty"`
	Append *Msg        `yaml:"append,omitempty"`
	Peers  []Peer      `yaml:"peers,omitempty"`
}

// UIStep dispatches a UI event. As picks the payload type: string (the
// default for scalars), tab, reaction, peer, or none.
type UIStep struct {
	Selector string    `yaml:"selector"`
	Type     string    `yaml:"type"`
	As       string    `yaml:"as,omitempty"`
	Payload  yaml.Node `yaml:"payload,omitempty"`
}

// BusStep dispatches a bus event. Type is the event's wire tag; the other
// fields are read by the events that carry them.
type BusStep struct {
	Type    string `yaml:"type"`
	MsgID   string `yaml:"msgId,omitempty"`
	FeedID  string `yaml:"feedId,omitempty"`
	Hashtag string `yaml:"hashtag,omitempty"`
	BlobID  string `yaml:"blobId,omitempty"`
	Subtype string `yaml:"subtype,omitempty"`
	Tab     string `yaml:"tab,omitempty"`
	Open    bool   `yaml:"open,omitempty"`
}

// DialogStep answers the pending dialog. Exactly one field is set.
type DialogStep struct {
	Select   string  `yaml:"select,omitempty"`
	Positive *string `yaml:"positive,omitempty"`
	Negative bool    `yaml:"negative,omitempty"`
	Dismiss  bool    `yaml:"dismiss,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key is a scoped bucket key such as "central/publicTab#navigation"
	// (trace_contains, trace_count).
	Key string `yaml:"key,omitempty"`

	// Payload is a subset the effect payload must contain (trace_contains).
	Payload any `yaml:"payload,omitempty"`

	// Keys are bucket keys expected in order (trace_order).
	Keys []string `yaml:"keys,omitempty"`

	// Count is the expected number of effects (trace_count).
	Count int `yaml:"count,omitempty"`

	// Path is a dotted path into the final state (final_state).
	Path string `yaml:"path,omitempty"`

	// Expect is the value at Path (final_state).
	Expect any `yaml:"expect,omitempty"`

	// Screens is the expected navigation stack (navigation).
	Screens []string `yaml:"screens,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertNavigation    = "navigation"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.Description == "" {
		return errors.New("description is required")
	}

	switch s.Screen {
	case "", ScreenApp:
	case ScreenThread:
		if root, _ := s.Props["rootMsgId"].(string); root == "" {
			return errors.New("props.rootMsgId is required for the thread screen")
		}
	default:
		return fmt.Errorf("unknown screen %q", s.Screen)
	}

	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(s Step) error {
	set := 0
	for _, ok := range []bool{s.UI != nil, s.Bus != nil, s.Back, s.Dialog != nil, s.Self != "", s.Append != nil, s.Peers != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one input is required, got %d", set)
	}

	switch {
	case s.UI != nil:
		if s.UI.Selector == "" || s.UI.Type == "" {
			return errors.New("ui: selector and type are required")
		}
		switch s.UI.As {
		case "", payloadString, payloadTab, payloadReaction, payloadPeer, payloadNone:
		default:
			return fmt.Errorf("ui: unknown payload type %q", s.UI.As)
		}
	case s.Bus != nil:
		if s.Bus.Type == "" {
			return errors.New("bus: type is required")
		}
	case s.Dialog != nil:
		n := 0
		for _, ok := range []bool{s.Dialog.Select != "", s.Dialog.Positive != nil, s.Dialog.Negative, s.Dialog.Dismiss} {
			if ok {
				n++
			}
		}
		if n != 1 {
			return errors.New("dialog: exactly one answer is required")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_contains", index)
		}
		if err := validateKey(a.Key); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertTraceOrder:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for trace_order", index)
		}
		for j, key := range a.Keys {
			if err := validateKey(key); err != nil {
				return fmt.Errorf("assertions[%d].keys[%d]: %w", index, j, err)
			}
		}
	case AssertTraceCount:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_count", index)
		}
		if err := validateKey(a.Key); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for final_state", index)
		}
	case AssertNavigation:
		if len(a.Screens) == 0 {
			return fmt.Errorf("assertions[%d]: screens list is required for navigation", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// validateKey checks that key names an effect bucket ("scope#bucket").
func validateKey(key string) error {
	_, bucket, ok := scope.SplitBucketKey(key)
	if !ok {
		return fmt.Errorf("key %q has no bucket (want scope#bucket)", key)
	}
	if !slices.Contains(effect.Names(), bucket) {
		return fmt.Errorf("key %q: unknown bucket %q", key, bucket)
	}
	return nil
}
