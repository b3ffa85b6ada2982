package conversation

import "homekeys/server/internal/models"

var demoTranscript = []models.Message{
	{Role: models.RoleAssistant, Text: "Hello! I'm your HomeKeys property assistant. What kind of home are you looking for?"},
	{Role: models.RoleUser, Text: "A single family home near Stanford with at least four bedrooms."},
	{Role: models.RoleAssistant, Text: "Let me check the current listings... (searching)"},
	{Role: models.RoleAssistant, Text: "I found a few homes in Stanford and Palo Alto. Do you have a budget in mind?"},
	{Role: models.RoleUser, Text: "Ideally under three million."},
	{Role: models.RoleAssistant, Text: "Narrowing those down... (searching)"},
	{Role: models.RoleAssistant, Text: "Here are the matches that fit your criteria. Want me to set up a call with the agent?"},
}

// DemoTranscript returns the scripted conversation shown before a visitor
// has any call activity of their own
func DemoTranscript() []models.Message {
	out := make([]models.Message, len(demoTranscript))
	copy(out, demoTranscript)
	return out
}
