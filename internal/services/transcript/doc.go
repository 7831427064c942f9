// Package transcript retrieves video transcripts from the transcript
// service and normalizes them for summarization.
package transcript
