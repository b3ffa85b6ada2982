// Package conversation replays assistant transcripts at a steady pace.
package conversation

import (
	"context"
	"time"

	"homekeys/server/internal/models"
)

const DefaultInterval = 2 * time.Second

// Replay emits one message per interval, in order, starting one interval
// after the call. The channel is closed once every message has been sent
// or ctx is done.
func Replay(ctx context.Context, messages []models.Message, interval time.Duration) <-chan models.Message {
	if interval <= 0 {
		interval = DefaultInterval
	}
	pending := make([]models.Message, len(messages))
	copy(pending, messages)

	out := make(chan models.Message)
	go func() {
		defer close(out)
		if len(pending) == 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, msg := range pending {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()
	return out
}
