package llm

import (
	"regexp"
	"strings"
)

// Reasoning models leak their chain-of-thought between these delimiters;
// users should only see the final answer.
var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// CleanResponse strips internal thinking delimiters and normalizes
// whitespace in a model reply before it is delivered to the user.
func CleanResponse(raw string) string {
	cleaned := thinkBlockRe.ReplaceAllString(raw, "")

	// An unterminated think block means the model was cut off mid-thought:
	// drop everything from the opening tag
	if idx := strings.Index(cleaned, "<think>"); idx >= 0 {
		cleaned = cleaned[:idx]
	}

	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
