// krishidev/chat/format.go
package chat

import "strings"

const (
	// FallbackMessage replaces generator output that carried no content.
	FallbackMessage = "🌱 Sorry, I couldn't analyze that clearly. Please try again."
	// EncourageSuffix terminates every formatted answer exactly once.
	EncourageSuffix = "🌿 Need more info? Ask your next question."
)

// Format normalizes generator output into the user-facing answer: blank or
// bare-"." output becomes the fallback message, and the encouragement
// suffix is appended unless already present. The full text is kept, no
// first-line truncation. Idempotent.
func Format(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" || text == "." {
		text = FallbackMessage
	}
	if !strings.HasSuffix(text, EncourageSuffix) {
		text += " " + EncourageSuffix
	}
	return text
}
