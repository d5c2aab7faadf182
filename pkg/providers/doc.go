// Package providers holds the wire clients for hosted model APIs. Each
// sub-package turns a [github.com/germanamz/agentapi/pkg/chats/chat.Chat] into
// one provider request and the reply back into a message.
package providers
