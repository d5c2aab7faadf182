// Package chats holds the provider-agnostic conversation model that agents
// and model adapters exchange.
//
// Sub-packages:
//   - [github.com/germanamz/agentapi/pkg/chats/role]: who sent a message
//   - [github.com/germanamz/agentapi/pkg/chats/content]: text, tool calls, tool results
//   - [github.com/germanamz/agentapi/pkg/chats/message]: a role plus content parts
//   - [github.com/germanamz/agentapi/pkg/chats/chat]: the ordered conversation
package chats
