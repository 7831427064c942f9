// Package pipeline orchestrates discovery and enrichment runs.
//
// A run polls every configured channel feed, records newly discovered
// videos, and drives each unfinished video through the transcript and
// summary stages with a bounded worker pool. Every state transition is
// persisted before and after stage work so an interrupted run can resume
// from the database alone.
package pipeline
