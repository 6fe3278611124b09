package services

import (
	"sort"
	"sync"

	"travorier/app/models"
)

// Conversation merges a history fetch with a live feed. History and feed may
// interleave in any order and the feed may redeliver; Add keeps one copy of
// each message id, ordered by server timestamp.
type Conversation struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	messages []models.Message
}

// NewConversation seeds a conversation with previously loaded history
func NewConversation(history []models.Message) *Conversation {
	c := &Conversation{seen: make(map[string]struct{}, len(history))}
	for _, msg := range history {
		c.Add(msg)
	}
	return c
}

// Add inserts msg in order and reports whether it was new
func (c *Conversation) Add(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[msg.ID]; dup {
		return false
	}
	c.seen[msg.ID] = struct{}{}

	i := sort.Search(len(c.messages), func(i int) bool {
		return msg.Before(c.messages[i])
	})
	c.messages = append(c.messages, models.Message{})
	copy(c.messages[i+1:], c.messages[i:])
	c.messages[i] = msg
	return true
}

// Messages returns a copy of the merged sequence
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of distinct messages held
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
