package checkup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinScore and MaxScore bound a single item score.
const (
	MinScore = 0
	MaxScore = 3
)

var integerPattern = regexp.MustCompile(`-?\d+`)

// ParseScore extracts the first integer in a model reply and clamps it to
// [MinScore, MaxScore]. Replies without an integer score 0.
func ParseScore(reply string) int {
	match := integerPattern.FindString(reply)
	if match == "" {
		return MinScore
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		// Only overflow reaches here; the sign decides which bound applies.
		if strings.HasPrefix(match, "-") {
			return MinScore
		}
		return MaxScore
	}
	return clamp(n)
}

func clamp(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}

// ScorePrompt builds the constrained instruction sent to the model for one answer.
func ScorePrompt(question, answer string) string {
	return fmt.Sprintf(`Using the PHQ-9 or GAD-7 scale, rate the user's response from 0 (not at all) to 3 (nearly every day).
Question: %q
Answer: %q
Respond only with a number from 0 to 3.`, question, answer)
}
