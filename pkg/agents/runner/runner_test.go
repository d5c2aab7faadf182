package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/germanamz/agentapi/pkg/agents"
	"github.com/germanamz/agentapi/pkg/chats/chat"
	"github.com/germanamz/agentapi/pkg/chats/content"
	"github.com/germanamz/agentapi/pkg/chats/message"
	"github.com/germanamz/agentapi/pkg/chats/role"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
	"github.com/germanamz/agentapi/pkg/tools/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns queued replies in order and records what it was sent.
type scriptedModel struct {
	mu      sync.Mutex
	replies []message.Message
	err     error

	calls   int
	prompts []string
	tools   [][]string
	lastLen int
}

func (m *scriptedModel) Complete(_ context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, c.SystemPrompt())
	m.lastLen = c.Len()

	var names []string
	for _, t := range tools {
		names = append(names, t.Name)
	}
	m.tools = append(m.tools, names)

	if m.err != nil {
		return message.Message{}, m.err
	}
	if len(m.replies) == 0 {
		return message.Message{}, errors.New("no more replies")
	}

	reply := m.replies[0]
	m.replies = m.replies[1:]

	return reply, nil
}

func text(s string) message.Message {
	return message.NewText("", role.Assistant, s)
}

func call(id, name, args string) message.Message {
	return message.New("", role.Assistant, content.ToolCall{ID: id, Name: name, Arguments: args})
}

func newPair(triageModel, weatherModel *scriptedModel) (*agents.Definition, *agents.Definition) {
	w := &agents.Definition{
		Name:         "weather_Assistant",
		Instructions: "You are a weather assistant.",
		Model:        weatherModel,
		Tools:        []toolbox.Tool{weather.Tool()},
	}
	t := &agents.Definition{
		Name:         "Assistant",
		Instructions: "You are a triage assistant.",
		Model:        triageModel,
		Handoffs:     []*agents.Definition{w},
	}
	return t, w
}

func TestRun_DirectAnswer(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{text("Hello!")}}
	triage, _ := newPair(tm, &scriptedModel{})

	res, err := New(Options{}).Run(context.Background(), triage, "hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello!", res.FinalOutput)
	assert.Equal(t, "Assistant", res.LastAgent)
	assert.Equal(t, 1, res.Turns)
	assert.Equal(t, 0, res.Handoffs)

	require.Len(t, tm.tools, 1)
	assert.Equal(t, []string{"transfer_to_weather_Assistant"}, tm.tools[0])
	assert.Contains(t, tm.prompts[0], "You are a triage assistant.")
	assert.Contains(t, tm.prompts[0], "transfer_to_weather_Assistant")
}

func TestRun_HandoffThenTool(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{
		call("c1", "transfer_to_weather_Assistant", "{}"),
	}}
	wm := &scriptedModel{replies: []message.Message{
		call("c2", weather.ToolName, `{"city":"Lahore"}`),
		text("It is sunny in Lahore."),
	}}
	triage, _ := newPair(tm, wm)

	res, err := New(Options{}).Run(context.Background(), triage, "weather in Lahore?")
	require.NoError(t, err)

	assert.Equal(t, "It is sunny in Lahore.", res.FinalOutput)
	assert.Equal(t, "weather_Assistant", res.LastAgent)
	assert.Equal(t, 3, res.Turns)
	assert.Equal(t, 1, res.Handoffs)

	assert.Equal(t, 1, tm.calls)
	assert.Equal(t, 2, wm.calls)
	assert.Equal(t, []string{weather.ToolName}, wm.tools[0])
	assert.Contains(t, wm.prompts[0], "You are a weather assistant.")
	// system, user, transfer call, transfer ack, weather tool call, tool result
	assert.Equal(t, 6, wm.lastLen)
}

func TestRun_ModelErrorWrapped(t *testing.T) {
	upstream := errors.New("connection refused")
	triage, _ := newPair(&scriptedModel{err: upstream}, &scriptedModel{})

	_, err := New(Options{}).Run(context.Background(), triage, "hi")
	require.ErrorIs(t, err, upstream)
	assert.Contains(t, err.Error(), `agent "Assistant"`)
}

func TestRun_MaxTurns(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{
		call("1", "nope", "{}"),
		call("2", "nope", "{}"),
		call("3", "nope", "{}"),
	}}
	triage, _ := newPair(tm, &scriptedModel{})

	_, err := New(Options{MaxTurns: 2}).Run(context.Background(), triage, "hi")
	require.ErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, 2, tm.calls)
}

func TestRun_MaxHandoffs(t *testing.T) {
	am := &scriptedModel{replies: []message.Message{
		call("1", "transfer_to_b", "{}"),
		call("3", "transfer_to_b", "{}"),
	}}
	bm := &scriptedModel{replies: []message.Message{
		call("2", "transfer_to_a", "{}"),
	}}
	a := &agents.Definition{Name: "a", Model: am}
	b := &agents.Definition{Name: "b", Model: bm}
	a.Handoffs = []*agents.Definition{b}
	b.Handoffs = []*agents.Definition{a}

	_, err := New(Options{MaxHandoffs: 2}).Run(context.Background(), a, "ping-pong")
	require.ErrorIs(t, err, ErrMaxHandoffs)
}

func TestRun_UnknownToolReportedToModel(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{
		call("1", "does_not_exist", "{}"),
		text("Sorry, I cannot do that."),
	}}
	triage, _ := newPair(tm, &scriptedModel{})

	res, err := New(Options{}).Run(context.Background(), triage, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I cannot do that.", res.FinalOutput)
	assert.Equal(t, 4, tm.lastLen)
}

func TestRun_SecondTransferSkipped(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{
		message.New("", role.Assistant,
			content.ToolCall{ID: "1", Name: "transfer_to_weather_Assistant", Arguments: "{}"},
			content.ToolCall{ID: "2", Name: "transfer_to_weather_Assistant", Arguments: "{}"},
		),
	}}
	wm := &scriptedModel{replies: []message.Message{text("done")}}
	triage, _ := newPair(tm, wm)

	res, err := New(Options{}).Run(context.Background(), triage, "weather")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Handoffs)
	// system, user, reply with two calls, two tool results
	assert.Equal(t, 5, wm.lastLen)
}

func TestRun_ClassifierRoutesBeforeModel(t *testing.T) {
	tm := &scriptedModel{}
	wm := &scriptedModel{replies: []message.Message{text("Sunny.")}}
	triage, _ := newPair(tm, wm)

	r := New(Options{Classifier: NewKeywordClassifier(Route{
		Agent:    "weather_Assistant",
		Keywords: []string{"weather"},
	})})

	res, err := r.Run(context.Background(), triage, "What's the WEATHER like?")
	require.NoError(t, err)

	assert.Equal(t, "Sunny.", res.FinalOutput)
	assert.Equal(t, "weather_Assistant", res.LastAgent)
	assert.Equal(t, 1, res.Handoffs)
	assert.Equal(t, 0, tm.calls)
}

func TestRun_ClassifierNoMatchLetsModelDecide(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{text("Hi there")}}
	triage, _ := newPair(tm, &scriptedModel{})

	r := New(Options{Classifier: NewKeywordClassifier(Route{Agent: "weather_Assistant", Keywords: []string{"rain"}})})

	res, err := r.Run(context.Background(), triage, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Assistant", res.LastAgent)
}

func TestRun_ClassifierUnknownTarget(t *testing.T) {
	triage, _ := newPair(&scriptedModel{}, &scriptedModel{})
	stranger := &agents.Definition{Name: "stranger", Model: &scriptedModel{}}

	r := New(Options{Classifier: ClassifierFunc(
		func(context.Context, *agents.Definition, string) (*agents.Definition, error) {
			return stranger, nil
		},
	)})

	_, err := r.Run(context.Background(), triage, "hi")
	require.ErrorIs(t, err, ErrUnknownHandoff)
}

func TestRun_ClassifierError(t *testing.T) {
	triage, _ := newPair(&scriptedModel{}, &scriptedModel{})

	r := New(Options{Classifier: ClassifierFunc(
		func(context.Context, *agents.Definition, string) (*agents.Definition, error) {
			return nil, errors.New("classifier offline")
		},
	)})

	_, err := r.Run(context.Background(), triage, "hi")
	require.ErrorContains(t, err, "classifier offline")
}

func TestRun_CancelledContext(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{text("never")}}
	triage, _ := newPair(tm, &scriptedModel{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Run(ctx, triage, "hi")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tm.calls)
}

func TestRun_NilAgent(t *testing.T) {
	_, err := New(Options{}).Run(context.Background(), nil, "hi")
	require.Error(t, err)
}

func TestBind(t *testing.T) {
	tm := &scriptedModel{replies: []message.Message{text("bound")}}
	triage, _ := newPair(tm, &scriptedModel{})

	res, err := New(Options{}).Bind(triage).Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "bound", res.FinalOutput)
}

func TestTransferTool_ReturnsHandoffError(t *testing.T) {
	tool := transferTool(&agents.Definition{Name: "weather_Assistant"})
	assert.Equal(t, "transfer_to_weather_Assistant", tool.Name)

	_, err := tool.Handler(context.Background(), nil)

	var he *HandoffError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "weather_Assistant", he.Target)
	assert.Equal(t, `handoff to "weather_Assistant"`, err.Error())
}
