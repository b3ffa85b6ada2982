package api

import (
	"io"

	"homekeys/server/internal/conversation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StreamConversation replays the session transcript as server-sent events,
// one message per interval, ending with a complete event
func (h *Handler) StreamConversation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	transcript := h.journal.TranscriptOrDemo(s.ID)
	messages := conversation.Replay(c.Request.Context(), transcript, h.interval)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	sent := 0
	c.Stream(func(w io.Writer) bool {
		msg, ok := <-messages
		if !ok {
			if c.Request.Context().Err() == nil {
				c.SSEvent("complete", gin.H{"count": sent})
			}
			return false
		}
		sent++
		c.SSEvent("message", msg)
		return true
	})

	h.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"sent":       sent,
		"total":      len(transcript),
	}).Debug("Conversation stream finished")
}
