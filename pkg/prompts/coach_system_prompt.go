package prompts

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed templates/coach_system_prompt.tmpl
var coachSystemPromptTemplate string

// Turn is one rendered line of recent conversation history.
type Turn struct {
	Role    string
	Content string
}

// CoachSystemPrompt carries everything interpolated into the coaching
// prompt: personalization, cross-session digests, the recent-turn window in
// chronological order, and the new inbound message.
type CoachSystemPrompt struct {
	Goals       []string
	Preferences map[string]string
	PastDigests []string
	RecentTurns []Turn
	Message     string
}

// BuildCoachSystemPrompt renders the full prompt handed to the
// generative-language backend. Rendering is deterministic: map iteration in
// text/template is key-sorted, and absent sections collapse to nothing.
func BuildCoachSystemPrompt(data CoachSystemPrompt) (string, error) {
	systemPromptTmpl := template.Must(template.New("coach_system_prompt").Parse(coachSystemPromptTemplate))
	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
