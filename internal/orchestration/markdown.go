package orchestration

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```(?:\\w+)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// ForceMarkdown strips a surrounding code fence and turns JSON-looking
// output into a bullet list so it does not render as one opaque block.
func ForceMarkdown(text string) string {
	s := strings.TrimSpace(text)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		s = "- " + strings.ReplaceAll(s, "\n", "\n- ")
	}
	return s
}
