// Package chat provides the mutable conversation container passed to model
// adapters.
package chat

import (
	"github.com/germanamz/agentapi/pkg/chats/message"
	"github.com/germanamz/agentapi/pkg/chats/role"
)

// Chat is an ordered conversation. The zero value is ready to use.
// Chat is not safe for concurrent use; each run owns its own Chat.
type Chat struct {
	messages []message.Message
}

// New creates a Chat pre-populated with msgs.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds messages to the end of the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages.
func (c *Chat) Len() int { return len(c.messages) }

// Last returns the most recent message, or false when the chat is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of all messages.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// SystemPrompt returns the text of the first system message, or "".
func (c *Chat) SystemPrompt() string {
	for _, m := range c.messages {
		if m.Role == role.System {
			return m.TextContent()
		}
	}
	return ""
}

// SetSystemPrompt replaces the leading system message, inserting one when the
// chat has none. The active agent's persona changes on handoff while the rest
// of the history is kept.
func (c *Chat) SetSystemPrompt(sender, prompt string) {
	sys := message.NewText(sender, role.System, prompt)

	if len(c.messages) > 0 && c.messages[0].Role == role.System {
		c.messages[0] = sys
		return
	}

	c.messages = append([]message.Message{sys}, c.messages...)
}
