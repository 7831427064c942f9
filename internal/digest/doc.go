// Package digest renders daily digests of enriched videos as JSON and
// Markdown files, plus a machine-readable feed for downstream aggregators.
package digest
