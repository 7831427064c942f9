// Package summarizer turns normalized transcripts into structured summaries
// using a local Ollama model.
package summarizer
