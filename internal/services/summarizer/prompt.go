package summarizer

import (
	"fmt"
	"strings"
)

const defaultMaxTranscriptChars = 15000

const promptTemplate = `You summarize YouTube video transcripts for a technology digest.

Respond with JSON only, using exactly this shape:
{"summary": "...", "key_points": ["..."], "category": "..."}

Rules:
- "summary" is 2-4 sentences covering the main argument of the video.
- "key_points" is 3-6 short bullet strings.
- "category" is exactly one of: research, announcement, tutorial, news, analysis.

Video title: %s
Channel: %s

Transcript:
%s`

// buildPrompt renders the summarization prompt, truncating the transcript to
// maxChars so long videos stay inside the model context window.
func buildPrompt(input Input, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultMaxTranscriptChars
	}
	transcript := strings.TrimSpace(input.Transcript)
	if len(transcript) > maxChars {
		transcript = transcript[:maxChars]
	}
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(input.Title),
		strings.TrimSpace(input.Channel),
		transcript)
}
