// Package engine implements the cooperative event loop every stream in the
// application runs on.
//
// ARCHITECTURE:
//
// Single-Goroutine Loop:
// All stream subscription, emission and reducer application happens on the
// goroutine that calls Engine.Run (or Engine.Drain in tests). This gives:
//   - Deterministic propagation order
//   - No locks inside the stream runtime
//   - Simple reasoning about which snapshot a listener observes
//
// Task Flow:
//  1. Collaborators on other goroutines (storage, transport, dialog answers)
//     call Post with a closure.
//  2. Tasks are stamped with a seq from the logical Clock and queued FIFO.
//  3. Run dequeues one task at a time and executes it to completion.
//  4. A panicking task is logged with its seq and the loop continues.
//
// Nothing posted to the loop may block. "Waiting" means a stream has not
// emitted yet.
//
// The loop never uses wall-clock time for ordering; seq is the only order.
package engine
