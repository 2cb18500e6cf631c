// Package diag defines the diagnostic model shared by the operation-log front
// end, the ownership checker and the driver.
//
// # Purpose
//
//   - Provide deterministic data structures that capture findings produced
//     while parsing an operation log and while checking it.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does not perform formatting beyond the single-line short form,
// IO, or CLI integration. Rendering lives in internal/diagfmt.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning, Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//     Ranges: SYN2xxx operation-log syntax, OWN3xxx ownership violations,
//     IO4xxx file and cache errors, PROJ5xxx configuration, OBS6xxx timings.
//   - Message: short, actionable text.
//   - Primary: the source.Span of the offending operation.
//   - Notes: secondary spans, e.g. where a value was moved or first borrowed.
//
// Notes must add context rather than repeat the message.
//
// # Emitting diagnostics
//
// Producers take a Reporter. ReportBuilder chains WithNote before Emit;
// BagReporter aggregates into a Bag, which supports sorting, deduplication
// and a hard limit.
package diag
