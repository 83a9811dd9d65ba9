package answer

import (
	"fmt"
	"strings"

	"github.com/futig/medrag/internal/entity"
)

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func previews(passages []entity.Passage, n int) []string {
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		out = append(out, Truncate(p.Text, n))
	}
	return out
}

func validateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question", entity.ErrMissingField)
	}
	return nil
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	return nil
}
