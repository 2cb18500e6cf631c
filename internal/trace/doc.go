// Package trace records what the checker is doing while it runs.
//
// It is the structured log of ownck: every driver step, pass and file is a
// span, and with LevelOp the checker's own event log is streamed as
// point events.
//
//	ownck check --trace=- --trace-level=file ./logs
//
// Tracers:
//
//   - Nop: nothing is recorded
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: the last N events, dumped on demand
//   - MultiTracer: fan out to several tracers
//
// Levels map to scopes: phase shows driver and pass spans, file adds
// per-file spans, op adds per-operation points.
//
// The tracer travels through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "parse", 0)
//	defer span.End("")
package trace
