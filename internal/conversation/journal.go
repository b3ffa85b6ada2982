package conversation

import (
	"fmt"
	"sync"

	"homekeys/server/internal/models"
)

const defaultJournalLimit = 100

// Journal keeps the per-session conversation built from call activity
type Journal struct {
	mu      sync.RWMutex
	limit   int
	entries map[string][]models.Message
}

func NewJournal(limit int) *Journal {
	if limit < 1 {
		limit = defaultJournalLimit
	}
	return &Journal{
		limit:   limit,
		entries: make(map[string][]models.Message),
	}
}

// Record appends messages to a session's transcript, keeping only the most
// recent entries up to the journal limit
func (j *Journal) Record(sessionID string, messages ...models.Message) {
	if sessionID == "" || len(messages) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := append(j.entries[sessionID], messages...)
	if over := len(entries) - j.limit; over > 0 {
		entries = append([]models.Message(nil), entries[over:]...)
	}
	j.entries[sessionID] = entries
}

// Transcript returns a copy of the session's messages
func (j *Journal) Transcript(sessionID string) []models.Message {
	j.mu.RLock()
	defer j.mu.RUnlock()
	entries := j.entries[sessionID]
	out := make([]models.Message, len(entries))
	copy(out, entries)
	return out
}

// TranscriptOrDemo falls back to the scripted demo when the session has
// no history
func (j *Journal) TranscriptOrDemo(sessionID string) []models.Message {
	if t := j.Transcript(sessionID); len(t) > 0 {
		return t
	}
	return DemoTranscript()
}

// Forget drops a session's transcript
func (j *Journal) Forget(sessionIDs ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, id := range sessionIDs {
		delete(j.entries, id)
	}
}

// HandleCallEvent is a queue subscriber that turns call attempts into
// transcript entries
func (j *Journal) HandleCallEvent(event models.CallEvent) error {
	if event.SessionID == "" {
		return nil
	}

	request := models.Message{Role: models.RoleUser, Text: fmt.Sprintf("Please call me at %s.", event.Phone)}
	var reply models.Message
	if event.Outcome.Accepted {
		reply = models.Message{Role: models.RoleAssistant, Text: fmt.Sprintf("Calling %s now. An agent will be with you shortly.", event.Phone)}
	} else {
		reply = models.Message{Role: models.RoleAssistant, Text: fmt.Sprintf("Sorry, I couldn't start the call. %s", event.Outcome.Message)}
	}

	j.Record(event.SessionID, request, reply)
	return nil
}
