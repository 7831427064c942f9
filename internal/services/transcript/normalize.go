package transcript

import (
	"regexp"
	"strings"
)

// annotationPattern matches inline caption annotations such as [Music] or
// [Applause] that carry no summarizable content.
var annotationPattern = regexp.MustCompile(`\[[^\]]*\]`)

// Normalize strips caption annotations and collapses whitespace so the
// summarizer sees clean prose.
func Normalize(text string) string {
	text = annotationPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
