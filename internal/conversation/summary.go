package conversation

import (
	"strings"

	"github.com/ashureev/solace/internal/domain"
	"github.com/samber/lo"
)

// MaxSummaryChars caps the rolling summary, keeping the most recent characters.
const MaxSummaryChars = 1500

// FormatSummary renders messages as "<Role>: <text>" lines, capped to the
// last MaxSummaryChars characters.
func FormatSummary(messages []domain.Message) string {
	lines := lo.Map(messages, func(m domain.Message, _ int) string {
		return m.Sender.Role() + ": " + m.Text
	})
	return lastChars(strings.Join(lines, "\n"), MaxSummaryChars)
}

// lastChars keeps the final n characters of s without splitting a rune.
func lastChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
