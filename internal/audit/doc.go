// Package audit carries security-relevant events from the engine to a
// caller-supplied sink without blocking the authentication path.
//
// The Dispatcher buffers events on a channel and delivers them from a single
// goroutine; under DropIfFull pressure it discards and counts rather than
// stalls. Which events exist and when they fire is the engine's business,
// not this package's.
package audit
