package gateway

import (
	"fmt"
	"strings"

	"github.com/ashureev/solace/internal/domain"
	"google.golang.org/genai"
)

const personaPrompt = `You are a compassionate and emotionally intelligent mental health companion.%s
Respond the way a caring therapist would: be gentle, validating and non-clinical. Never say you are an AI and avoid disclaimers or identity statements. Always focus on helping the user feel heard and safe.`

// SystemPrompt returns the persona instructions sent as the first message part.
func SystemPrompt(profile *domain.UserProfile) string {
	who := ""
	if profile.HasPersona() {
		who = fmt.Sprintf(" The user is a %s from %s.", strings.TrimSpace(profile.Gender), strings.TrimSpace(profile.Country))
	}
	return fmt.Sprintf(personaPrompt, who)
}

// buildContents lays out the request: persona first, then the rolling
// summary when there is one, then the new input.
func buildContents(summary, message string, profile *domain.UserProfile) []*genai.Content {
	contents := []*genai.Content{userContent(SystemPrompt(profile))}
	if strings.TrimSpace(summary) != "" {
		contents = append(contents, userContent("Recent conversation for context:\n"+summary))
	}
	return append(contents, userContent(message))
}

func userContent(text string) *genai.Content {
	return &genai.Content{
		Role:  string(genai.RoleUser),
		Parts: []*genai.Part{{Text: text}},
	}
}

// replyText extracts candidates[0].content.parts[0].text.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyReply
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
