// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, stage names, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures as
//     transient, permanent, or source-scoped so the orchestrator never sees an
//     uncategorized external error.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
