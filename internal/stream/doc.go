// Package stream implements the push-based stream runtime the composition
// engine is built on.
//
// ARCHITECTURE:
//
// Streams are lazy and hot. A stream's Producer starts when the first
// Listener attaches and stops when the last one detaches; operators
// (Map, Filter, Merge, Flatten, ...) are producers that subscribe upstream
// on Start and unsubscribe on Stop, so unsubscribing from a composed output
// cascades through every stream the composition created.
//
// Propagation is synchronous and single-threaded. Every subscription and
// emission happens on the loop goroutine owned by engine.Engine; values from
// other goroutines enter through FromChan or by posting a task to the loop.
//
// ORDERING:
//
// Within one propagation, listeners of a stream are called in subscription
// order. Merge subscribes its inputs in argument order, so simultaneous
// emissions reaching several inputs come out ordered by input position,
// independent of when the inputs were created.
//
// ERRORS:
//
// An error terminates the stream that carries it. Streams without an error
// listener log the error with slog and drop it; nothing panics.
package stream
