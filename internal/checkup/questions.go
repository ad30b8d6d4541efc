// Package checkup schedules and administers the periodic wellbeing checkup:
// nine PHQ-9 style items followed by seven GAD-7 style items, each scored 0-3.
package checkup

// PHQCount is the number of depression items at the start of the question set.
const PHQCount = 9

var phqQuestions = [PHQCount]string{
	"In the past two weeks, how often have you felt little interest or pleasure in doing things?",
	"How often have you been feeling down, depressed, or hopeless?",
	"Have you had trouble falling or staying asleep, or sleeping too much?",
	"Have you been feeling tired or having little energy?",
	"How often have you had poor appetite or overeating?",
	"How often have you felt bad about yourself, or that you're a failure or have let yourself or your family down?",
	"How often have you had trouble concentrating on things like reading or watching TV?",
	"Have you been moving or speaking so slowly that others noticed? Or the opposite, being fidgety or restless?",
	"Have you ever thought you'd be better off dead or of hurting yourself?",
}

var gadQuestions = [7]string{
	"How often have you been feeling nervous, anxious, or on edge?",
	"How often have you been unable to stop or control worrying?",
	"Have you been worrying too much about different things?",
	"How often have you had trouble relaxing?",
	"Have you been so restless that it's hard to sit still?",
	"How easily have you been annoyed or irritable?",
	"How often have you felt afraid something awful might happen?",
}

// QuestionCount is the length of one full cycle.
const QuestionCount = PHQCount + len(gadQuestions)

// selfHarmIndex is the PHQ item asking about self-harm.
const selfHarmIndex = 8

// Questions returns the fixed question sequence, PHQ items first.
func Questions() []string {
	out := make([]string, 0, QuestionCount)
	out = append(out, phqQuestions[:]...)
	return append(out, gadQuestions[:]...)
}
