package toolbox

import (
	"context"
	"encoding/json"
)

// Handler executes a tool with the given JSON arguments and returns text for
// the model.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is an executable function the model may call: a name, a description,
// a JSON Schema for its arguments, and the handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}
