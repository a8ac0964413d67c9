// Package effect defines the named output buckets a module emits side
// effects on, and how same-named buckets of sibling modules are merged.
package effect

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
)

// Bucket names.
const (
	Navigation = "navigation"
	Toast      = "toast"
	Storage    = "storage"
	SSB        = "ssb"
	Clipboard  = "clipboard"
	Linking    = "linking"
	Share      = "share"
	Dialog     = "dialog"
	Bus        = "bus"
	Exit       = "exit"
)

// Names lists every bucket in the fixed order drivers are attached in.
func Names() []string {
	return []string{Navigation, Toast, Storage, SSB, Clipboard, Linking, Share, Dialog, Bus, Exit}
}

// Duration of a toast.
type Duration string

const (
	Short Duration = "short"
	Long  Duration = "long"
)

// ToastMsg is a transient message.
type ToastMsg struct {
	Message  string   `json:"message"`
	Duration Duration `json:"duration"`
}

// ShareMsg is content handed to the platform share sheet.
type ShareMsg struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// ExitMsg asks the platform to close the app.
type ExitMsg struct{}

// Buckets holds one stream per effect bucket. A nil stream means the module
// emits nothing there.
type Buckets struct {
	Navigation *stream.Stream[nav.Command]
	Toast      *stream.Stream[ToastMsg]
	Storage    *stream.Stream[storage.Command]
	SSB        *stream.Stream[ssb.Req]
	Clipboard  *stream.Stream[string]
	Linking    *stream.Stream[string]
	Share      *stream.Stream[ShareMsg]
	Dialog     *stream.Stream[dialog.Command]
	Bus        *stream.Stream[bus.Event]
	Exit       *stream.Stream[ExitMsg]
}

// Merge merges same-named buckets by position: for each name, the result
// emits the values of bs[0] before bs[1] when they emit in the same
// propagation. A bucket nil in every input stays nil.
func Merge(bs ...Buckets) Buckets {
	return Buckets{
		Navigation: mergeField(bs, func(b Buckets) *stream.Stream[nav.Command] { return b.Navigation }),
		Toast:      mergeField(bs, func(b Buckets) *stream.Stream[ToastMsg] { return b.Toast }),
		Storage:    mergeField(bs, func(b Buckets) *stream.Stream[storage.Command] { return b.Storage }),
		SSB:        mergeField(bs, func(b Buckets) *stream.Stream[ssb.Req] { return b.SSB }),
		Clipboard:  mergeField(bs, func(b Buckets) *stream.Stream[string] { return b.Clipboard }),
		Linking:    mergeField(bs, func(b Buckets) *stream.Stream[string] { return b.Linking }),
		Share:      mergeField(bs, func(b Buckets) *stream.Stream[ShareMsg] { return b.Share }),
		Dialog:     mergeField(bs, func(b Buckets) *stream.Stream[dialog.Command] { return b.Dialog }),
		Bus:        mergeField(bs, func(b Buckets) *stream.Stream[bus.Event] { return b.Bus }),
		Exit:       mergeField(bs, func(b Buckets) *stream.Stream[ExitMsg] { return b.Exit }),
	}
}

func mergeField[T any](bs []Buckets, field func(Buckets) *stream.Stream[T]) *stream.Stream[T] {
	var ins []*stream.Stream[T]
	for _, b := range bs {
		if s := field(b); s != nil {
			ins = append(ins, s)
		}
	}
	switch len(ins) {
	case 0:
		return nil
	case 1:
		return ins[0]
	default:
		return stream.Merge(ins...)
	}
}

// Present lists the names of the non-nil buckets, in Names order.
func (b Buckets) Present() []string {
	var out []string
	for _, name := range Names() {
		if b.has(name) {
			out = append(out, name)
		}
	}
	return out
}

func (b Buckets) has(name string) bool {
	switch name {
	case Navigation:
		return b.Navigation != nil
	case Toast:
		return b.Toast != nil
	case Storage:
		return b.Storage != nil
	case SSB:
		return b.SSB != nil
	case Clipboard:
		return b.Clipboard != nil
	case Linking:
		return b.Linking != nil
	case Share:
		return b.Share != nil
	case Dialog:
		return b.Dialog != nil
	case Bus:
		return b.Bus != nil
	case Exit:
		return b.Exit != nil
	}
	return false
}

// Emission is one value observed on a bucket, tagged with the scope that
// emitted it.
type Emission struct {
	Scope  string
	Bucket string
	Value  any
}

// Tracer attributes every effect emission to the innermost isolated scope
// that emitted it.
//
// Isolation marks a child's buckets with Mark; the root reports them with
// Observe. Propagation is synchronous, so a value marked on its way up is
// observed at the root before any other value of the same bucket moves.
// A nil Tracer passes buckets through untouched.
//
// Thread-safety: NOT safe for concurrent use; loop goroutine only.
type Tracer struct {
	observe func(Emission)
	pending map[string]string
}

// NewTracer returns a tracer reporting to observe, or nil when observe is
// nil.
func NewTracer(observe func(Emission)) *Tracer {
	if observe == nil {
		return nil
	}
	return &Tracer{observe: observe, pending: make(map[string]string)}
}

// Mark tags the emissions of b with scope unless a scope nested deeper
// already tagged them.
func (t *Tracer) Mark(b Buckets, scope string) Buckets {
	if t == nil {
		return b
	}
	return t.each(b, scope, t.mark)
}

// Observe reports the emissions of b before downstream listeners see them.
// Unmarked emissions are attributed to scope.
func (t *Tracer) Observe(b Buckets, scope string) Buckets {
	if t == nil {
		return b
	}
	return t.each(b, scope, t.report)
}

func (t *Tracer) mark(scope, bucket string, _ any) {
	if _, ok := t.pending[bucket]; !ok {
		t.pending[bucket] = scope
	}
}

func (t *Tracer) report(scope, bucket string, v any) {
	if marked, ok := t.pending[bucket]; ok {
		scope = marked
		delete(t.pending, bucket)
	}
	t.observe(Emission{Scope: scope, Bucket: bucket, Value: v})
}

func (t *Tracer) each(b Buckets, scope string, fn func(scope, bucket string, v any)) Buckets {
	return Buckets{
		Navigation: tapField(b.Navigation, scope, Navigation, fn),
		Toast:      tapField(b.Toast, scope, Toast, fn),
		Storage:    tapField(b.Storage, scope, Storage, fn),
		SSB:        tapField(b.SSB, scope, SSB, fn),
		Clipboard:  tapField(b.Clipboard, scope, Clipboard, fn),
		Linking:    tapField(b.Linking, scope, Linking, fn),
		Share:      tapField(b.Share, scope, Share, fn),
		Dialog:     tapField(b.Dialog, scope, Dialog, fn),
		Bus:        tapField(b.Bus, scope, Bus, fn),
		Exit:       tapField(b.Exit, scope, Exit, fn),
	}
}

func tapField[T any](s *stream.Stream[T], scope, bucket string, fn func(scope, bucket string, v any)) *stream.Stream[T] {
	if s == nil {
		return nil
	}
	return stream.Map(s, func(v T) T {
		fn(scope, bucket, v)
		return v
	})
}
