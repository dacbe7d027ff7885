// Package metrics stores in-process counters and a verification latency
// histogram for the engine.
//
// Counters live in cache-line-padded uint64 slots written with sync/atomic,
// so the hot path never takes a lock or allocates. The histogram has 8 fixed
// buckets (<=5ms through +Inf). Export to OTel reads Snapshot values and
// lives under metrics/export/.
package metrics
