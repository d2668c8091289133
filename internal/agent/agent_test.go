package agent

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soberm258/tiny-agents/internal/tool"
)

// scriptedLLM replays canned outputs in order, repeating the last one.
type scriptedLLM struct {
	mu      sync.Mutex
	outputs []string
	calls   int
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	i := s.calls
	s.calls++
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return s.outputs[i]
}

// echoTool records invocations and returns a fixed item list.
type echoTool struct {
	mu   sync.Mutex
	runs int
	name string
	fail bool
}

func (e *echoTool) Spec() tool.Spec {
	name := e.name
	if name == "" {
		name = "rag_search"
	}
	return tool.Spec{Name: name, Description: "test tool"}
}

func (e *echoTool) PromptUsage() string { return "" }

func (e *echoTool) NormalizeArguments(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	return args, nil
}

func (e *echoTool) Run(_ context.Context, args map[string]any) (map[string]any, error) {
	e.mu.Lock()
	e.runs++
	e.mu.Unlock()
	if e.fail {
		return nil, assertError{}
	}
	return map[string]any{
		"items": []map[string]any{
			{"rank": 1, "score": 0.9, "id": "c1", "text": "证据文本", "meta": map[string]any{"source_path": "a.txt"}},
		},
	}, nil
}

type assertError struct{}

func (assertError) Error() string { return "工具内部错误" }

func registryWith(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, r.Register(tl))
	}
	return r
}

func TestAgent_FinalOnFirstTurn(t *testing.T) {
	model := &scriptedLLM{outputs: []string{"Thought: 已知\nFinal: 直接回答"}}
	a := New(model, registryWith(t, &echoTool{}))

	answer, history := a.Run(context.Background(), "问题")

	assert.Equal(t, "直接回答", answer)
	assert.Empty(t, history)
}

func TestAgent_ActionThenFinal(t *testing.T) {
	model := &scriptedLLM{outputs: []string{
		"Thought: 先检索\nAction: rag_search\nAction Input: {\"query\": \"南京\", \"topk\": 2}",
		"Thought: 足够了\nFinal: 南京是江苏省省会",
	}}
	tl := &echoTool{}
	a := New(model, registryWith(t, tl))

	answer, history := a.Run(context.Background(), "南京是什么")

	assert.Equal(t, "南京是江苏省省会", answer)
	assert.Equal(t, 1, tl.runs)
	assert.Contains(t, history, "Action: rag_search")
	assert.Contains(t, history, "Observation:")
	assert.Contains(t, history, "证据文本")
}

func TestAgent_BudgetExhaustion(t *testing.T) {
	// Given max_tool_calls=1 and a model that keeps requesting actions
	// until it sees the budget observation
	model := &scriptedLLM{outputs: []string{
		"Action: rag_search\nAction Input: {\"query\": \"第一次\"}",
		"Action: rag_search\nAction Input: {\"query\": \"第二次\"}",
		"Final: 基于已有观察的回答",
	}}
	tl := &echoTool{}
	a := New(model, registryWith(t, tl))
	a.MaxToolCalls = 1

	answer, history := a.Run(context.Background(), "问题")

	// Then the second action is not dispatched, the synthetic budget
	// observation appears, and the answer has no further Action blocks.
	assert.Equal(t, 1, tl.runs)
	assert.Contains(t, history, MsgBudgetExhausted)
	assert.Equal(t, "基于已有观察的回答", answer)
	assert.NotContains(t, answer, "Action:")
}

func TestAgent_ZeroToolCallsForcesFinal(t *testing.T) {
	model := &scriptedLLM{outputs: []string{
		"Action: rag_search\nAction Input: {\"query\": \"q\"}",
		"Final: 不检索也能答",
	}}
	tl := &echoTool{}
	a := New(model, registryWith(t, tl))
	a.MaxToolCalls = 0

	answer, history := a.Run(context.Background(), "问题")

	assert.Equal(t, 0, tl.runs)
	assert.Contains(t, history, MsgBudgetExhausted)
	assert.Equal(t, "不检索也能答", answer)
}

func TestAgent_MaxStepsExhaustion(t *testing.T) {
	model := &scriptedLLM{outputs: []string{"Action: rag_search\nAction Input: {\"query\": \"永远检索\"}"}}
	a := New(model, registryWith(t, &echoTool{}))
	a.MaxSteps = 2
	a.MaxToolCalls = 10

	answer, history := a.Run(context.Background(), "问题")

	assert.Equal(t, MsgMaxSteps, answer)
	assert.NotEmpty(t, history)
}

func TestAgent_RawOutputTerminates(t *testing.T) {
	model := &scriptedLLM{outputs: []string{"这段输出既没有 Final 也没有动作"}}
	a := New(model, registryWith(t, &echoTool{}))

	answer, _ := a.Run(context.Background(), "问题")

	assert.Equal(t, "这段输出既没有 Final 也没有动作", answer)
}

func TestAgent_WhitespaceOutputTerminates(t *testing.T) {
	model := &scriptedLLM{outputs: []string{"   \n  "}}
	a := New(model, registryWith(t, &echoTool{}))

	answer, history := a.Run(context.Background(), "问题")

	assert.Empty(t, answer)
	assert.Empty(t, history)
}

func TestAgent_ToolErrorDemotedToObservation(t *testing.T) {
	model := &scriptedLLM{outputs: []string{
		"Action: rag_search\nAction Input: {\"query\": \"q\"}",
		"Final: 出错后仍能收尾",
	}}
	a := New(model, registryWith(t, &echoTool{fail: true}))

	answer, history := a.Run(context.Background(), "问题")

	assert.Equal(t, "出错后仍能收尾", answer)
	assert.Contains(t, history, "工具内部错误")
}

func TestAgent_DefaultTopKInjected(t *testing.T) {
	model := &scriptedLLM{outputs: []string{
		"Action: rag_search\nAction Input: {\"query\": \"q\"}",
		"Final: 完成",
	}}
	a := New(model, registryWith(t, &echoTool{}))
	a.DefaultTopK = 7

	_, history := a.Run(context.Background(), "问题")

	assert.Contains(t, history, "\"topk\":7")
}

func TestAgent_UnknownToolDemoted(t *testing.T) {
	model := &scriptedLLM{outputs: []string{
		"Action: no_such_tool\nAction Input: {}",
		"Final: 收尾",
	}}
	a := New(model, registryWith(t, &echoTool{}))

	answer, history := a.Run(context.Background(), "问题")

	assert.Equal(t, "收尾", answer)
	assert.Contains(t, history, "未注册工具")
}

// slowLLM blocks until its context is cancelled.
type slowLLM struct{}

func (slowLLM) Generate(ctx context.Context, _ string) string {
	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	return "太迟了"
}

func TestAgent_LLMTimeoutBecomesFailureString(t *testing.T) {
	a := New(slowLLM{}, registryWith(t, &echoTool{}))
	a.LLMTimeout = 20 * time.Millisecond

	answer, _ := a.Run(context.Background(), "问题")

	// The timeout string is not parseable as an action, so the loop
	// returns it as the raw answer.
	assert.True(t, strings.HasPrefix(answer, "生成失败: LLM 调用超时"), answer)
}
