// Package agents describes agent personas and the "ask an agent" operation.
//
// A [Definition] is pure configuration: a name, instructions for the model,
// the model itself, the tools it may call, and the agents it may hand off
// to. Definitions are built once at start-up and never mutated.
//
// The runner sub-package executes a Definition against a user message; the
// middleware sub-package decorates the resulting [Asker].
package agents
