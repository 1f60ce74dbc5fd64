// Package chatclient is the visitor-side half of the agent: it keeps the
// conversation, talks to the agent endpoint and records every exchange in the
// audit feed without making the caller wait for it.
package chatclient

import (
	"sync"

	"portfolio-agent/internal/model"
	"portfolio-agent/internal/pkg/answertext"
)

const DefaultGreeting = "Hi! I can answer questions about my experience, product approach, design background, and projects."

// Conversation is an append-only message list plus the set of questions
// already asked in it.
type Conversation struct {
	mu       sync.RWMutex
	messages []model.ChatMessage
	asked    map[string]struct{}
}

func NewConversation(greeting string) *Conversation {
	c := &Conversation{asked: make(map[string]struct{})}
	if greeting != "" {
		c.messages = append(c.messages, model.ChatMessage{Role: model.RoleAssistant, Content: greeting})
	}
	return c
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []model.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// AddUser appends a user turn, remembers the question and returns the
// conversation including it.
func (c *Conversation) AddUser(content string) []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked[answertext.NormalizeQuestion(content)] = struct{}{}
	c.messages = append(c.messages, model.ChatMessage{Role: model.RoleUser, Content: content})
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) AddAssistant(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, model.ChatMessage{Role: model.RoleAssistant, Content: content})
}

// Asked returns a copy of the normalized questions asked so far.
func (c *Conversation) Asked() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]struct{}, len(c.asked))
	for k := range c.asked {
		out[k] = struct{}{}
	}
	return out
}
