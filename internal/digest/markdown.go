package digest

import (
	"fmt"
	"strings"
)

// renderMarkdown produces the human-readable digest, grouped by channel
// domain in the order items already carry.
func renderMarkdown(d *Digest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Signal Watch Digest - %s\n\n", d.Date)
	if d.VideoCount == 0 {
		fmt.Fprintf(&sb, "No videos enriched in the last %d hours.\n", d.WindowHours)
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d videos from the last %d hours.\n", d.VideoCount, d.WindowHours)

	var currentDomain string
	for _, item := range d.Items {
		if item.Domain != currentDomain {
			currentDomain = item.Domain
			title := currentDomain
			if title == "" {
				title = "general"
			}
			fmt.Fprintf(&sb, "\n## %s\n", strings.ToUpper(title[:1])+title[1:])
		}
		fmt.Fprintf(&sb, "\n### [%s](%s)\n", item.Title, item.URL)
		fmt.Fprintf(&sb, "*%s | %s*\n\n", item.Channel, item.Category)
		fmt.Fprintf(&sb, "%s\n", item.Summary)
		if len(item.KeyPoints) > 0 {
			sb.WriteString("\n")
			for _, point := range item.KeyPoints {
				fmt.Fprintf(&sb, "- %s\n", point)
			}
		}
	}
	return sb.String()
}
