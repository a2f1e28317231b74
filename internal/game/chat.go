package game

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultChatLimit = 200

// NewMessage validates a chat post. The sender must be known and the text must
// not be blank once trimmed.
func NewMessage(sender, text string, now time.Time) (Message, error) {
	if sender == "" {
		return Message{}, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	return Message{ID: uuid.NewString(), Sender: sender, Text: text, TS: now.Unix()}, nil
}

// SortMessages orders msgs by timestamp, oldest first, keeping insertion order
// for equal timestamps, and caps the result at limit entries.
func SortMessages(msgs []Message, limit int) []Message {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].TS < msgs[j].TS })
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs
}
