package runner

import (
	"context"
	"strings"

	"github.com/germanamz/agentapi/pkg/agents"
)

// Classifier decides which agent should answer a message before the model is
// consulted. It returns from itself, one of from's handoffs, or nil to let the
// model decide through its transfer tools.
type Classifier interface {
	Classify(ctx context.Context, from *agents.Definition, input string) (*agents.Definition, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, from *agents.Definition, input string) (*agents.Definition, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, from *agents.Definition, input string) (*agents.Definition, error) {
	return f(ctx, from, input)
}

// Route maps keywords to the agent that should handle messages containing
// any of them.
type Route struct {
	Agent    string   `yaml:"agent"`
	Keywords []string `yaml:"keywords"`
}

// KeywordClassifier routes by case-insensitive keyword match. Routes are
// tried in order; a route naming an agent that is not a handoff of the
// current agent is skipped.
type KeywordClassifier struct {
	routes []Route
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier creates a KeywordClassifier. Keywords are lowercased
// and blank ones dropped.
func NewKeywordClassifier(routes ...Route) *KeywordClassifier {
	kc := &KeywordClassifier{}
	for _, r := range routes {
		var kws []string
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if r.Agent != "" && len(kws) > 0 {
			kc.routes = append(kc.routes, Route{Agent: r.Agent, Keywords: kws})
		}
	}
	return kc
}

// Classify returns the first handoff of from whose keywords occur in input.
func (kc *KeywordClassifier) Classify(_ context.Context, from *agents.Definition, input string) (*agents.Definition, error) {
	text := strings.ToLower(input)

	for _, r := range kc.routes {
		target, ok := from.Handoff(r.Agent)
		if !ok {
			continue
		}
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return target, nil
			}
		}
	}

	return nil, nil
}
