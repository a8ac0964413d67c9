// Package nav models the platform navigation stack as push/pop commands.
package nav

import (
	"errors"
	"log/slog"

	"github.com/ilkecan/manyverse/internal/stream"
)

// Kind is the navigation command type.
type Kind string

const (
	Push      Kind = "push"
	Pop       Kind = "pop"
	PopToRoot Kind = "popToRoot"
)

// Screen names.
const (
	ScreenCentral = "central"
	ScreenProfile = "profile"
	ScreenThread  = "thread"
	ScreenSearch  = "search"
	ScreenCompose = "compose"
	ScreenDrawer  = "drawer"
)

// Command is emitted on the navigation bucket.
type Command struct {
	Type   Kind           `json:"type"`
	Screen string         `json:"screen,omitempty"`
	Props  map[string]any `json:"props,omitempty"`
}

// Frame is one entry of the stack.
type Frame struct {
	Screen string
	Props  map[string]any
}

// ErrAtRoot is returned when popping the root screen.
var ErrAtRoot = errors.New("nav: cannot pop the root screen")

// ErrNoScreen is returned when pushing without a screen name.
var ErrNoScreen = errors.New("nav: push without screen")

// Stack is an in-memory navigation stack.
//
// Thread-safety: NOT safe for concurrent use; owned by the loop goroutine.
type Stack struct {
	frames []Frame
}

// NewStack creates a stack showing root.
func NewStack(root Frame) *Stack {
	return &Stack{frames: []Frame{root}}
}

// Apply executes cmd.
func (s *Stack) Apply(cmd Command) error {
	switch cmd.Type {
	case Push:
		if cmd.Screen == "" {
			return ErrNoScreen
		}
		s.frames = append(s.frames, Frame{Screen: cmd.Screen, Props: cmd.Props})
	case Pop:
		if len(s.frames) <= 1 {
			return ErrAtRoot
		}
		s.frames = s.frames[:len(s.frames)-1]
	case PopToRoot:
		s.frames = s.frames[:1]
	default:
		return errors.New("nav: unknown command " + string(cmd.Type))
	}
	return nil
}

// Top returns the visible screen.
func (s *Stack) Top() Frame {
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of screens on the stack.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Screens returns the screen names from root to top.
func (s *Stack) Screens() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Screen
	}
	return out
}

// Driver executes navigation commands and sources back presses.
type Driver struct {
	stack *Stack
	back  *stream.Subject[struct{}]
}

// NewDriver creates a driver over stack.
func NewDriver(stack *Stack) *Driver {
	return &Driver{stack: stack, back: stream.NewSubject[struct{}]()}
}

// Stack returns the driven stack.
func (d *Driver) Stack() *Stack {
	return d.stack
}

// Consume applies every command of cmds. Invalid commands are logged and
// skipped.
func (d *Driver) Consume(cmds *stream.Stream[Command]) *stream.Subscription {
	return stream.OrNever(cmds).Subscribe(stream.Listener[Command]{
		Next: func(cmd Command) {
			if err := d.stack.Apply(cmd); err != nil {
				slog.Warn("navigation command ignored", "type", cmd.Type, "screen", cmd.Screen, "error", err)
				return
			}
			slog.Debug("navigated", "type", cmd.Type, "top", d.stack.Top().Screen)
		},
		Error: func(err error) {
			slog.Error("navigation stream failed", "error", err)
		},
	})
}

// PressBack reports a hardware back press. Call on the loop goroutine.
func (d *Driver) PressBack() {
	d.back.Next(struct{}{})
}

// Source returns the navigation source.
func (d *Driver) Source() Source {
	return Source{back: d.back.Stream}
}

// Source exposes navigation input. The zero Source never emits.
type Source struct {
	back *stream.Stream[struct{}]
}

// BackPress emits on every hardware back press.
func (s Source) BackPress() *stream.Stream[struct{}] {
	return stream.OrNever(s.back)
}
