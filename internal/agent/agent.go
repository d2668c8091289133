package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/soberm258/tiny-agents/internal/llm"
	"github.com/soberm258/tiny-agents/internal/tool"
)

// User-visible loop failure messages.
const (
	// MsgMaxSteps returns when the loop exhausts its steps without Final.
	MsgMaxSteps = "已达到最大步数，仍未得到 Final 输出。你可以尝试缩小问题范围或提高 topk。"
	// MsgBudgetExhausted is injected as a synthetic observation once the
	// tool-call budget is spent.
	MsgBudgetExhausted = "工具调用次数已达上限，请基于已有 Observation 输出 Final。"
)

// StepObserver receives loop progress for display. All methods may be
// called with a nil receiver guard by the agent; implementations need no
// nil checks.
type StepObserver interface {
	OnStepStart(step int)
	OnModelOutput(raw string, parsed *ParseResult, elapsed time.Duration)
	OnAction(name string, input map[string]any)
	OnObservation(obs string)
	OnFinal(answer string)
}

// Agent drives the bounded Thought -> Action -> Observation state machine.
type Agent struct {
	LLM   llm.LLM
	Tools *tool.Registry

	// MaxSteps caps loop iterations (default 6).
	MaxSteps int
	// MaxToolCalls caps executed tool calls per query (default 2).
	// Zero forces Final without retrieval.
	MaxToolCalls int
	// LLMTimeout is the wall-clock deadline per LLM invocation.
	LLMTimeout time.Duration
	// DefaultTopK fills a missing topk argument.
	DefaultTopK int

	// Steps, when set, receives loop progress.
	Steps StepObserver
}

// New creates an agent with spec defaults for unset budgets.
func New(model llm.LLM, tools *tool.Registry) *Agent {
	return &Agent{
		LLM:          model,
		Tools:        tools,
		MaxSteps:     6,
		MaxToolCalls: 2,
		LLMTimeout:   180 * time.Second,
		DefaultTopK:  5,
	}
}

// Run answers one question. It returns the final answer and the accumulated
// history; errors inside tools are demoted to observations so the model can
// recover, never surfaced to the caller.
func (a *Agent) Run(ctx context.Context, question string) (string, string) {
	maxSteps := a.MaxSteps
	if maxSteps < 1 {
		maxSteps = 1
	}
	defaultTopK := a.DefaultTopK
	if defaultTopK < 1 {
		defaultTopK = 5
	}

	history := ""
	toolsTxt := a.Tools.FormatForPrompt()
	toolCalls := 0

	for step := 1; step <= maxSteps; step++ {
		a.stepStart(step)

		prompt := RenderPrompt(toolsTxt, question, history, a.MaxToolCalls)
		t0 := time.Now()
		modelOut := strings.TrimSpace(llm.GenerateWithTimeout(ctx, a.LLM, prompt, a.LLMTimeout))
		parsed := ParseReAct(modelOut)
		a.modelOutput(modelOut, parsed, time.Since(t0))

		switch parsed.Kind() {
		case StepFinal:
			a.final(parsed.Final)
			return parsed.Final, history

		case StepRaw:
			// Neither Final nor Action: return the raw text and stop.
			return modelOut, history

		case StepAction:
			input := parsed.ActionInput
			if input == nil {
				input = map[string]any{}
			}
			if _, ok := input["topk"]; !ok {
				input["topk"] = defaultTopK
			}

			var obsTxt string
			if toolCalls >= a.MaxToolCalls {
				obsTxt = MsgBudgetExhausted
			} else {
				a.action(parsed.ActionName, input)
				result, err := a.Tools.Execute(ctx, parsed.ActionName, input)
				if err != nil {
					result = map[string]any{"items": []any{}, "error": err.Error()}
				}
				obsTxt = tool.FormatObservation(result)
				toolCalls++
				a.observation(obsTxt)
			}

			history = appendStep(history, parsed, input, obsTxt)
		}
	}

	slog.Warn("react_max_steps_reached", slog.Int("max_steps", maxSteps))
	return MsgMaxSteps, history
}

// appendStep appends one formatted Thought/Action/Observation block.
func appendStep(history string, parsed *ParseResult, input map[string]any, obsTxt string) string {
	var block []string
	if parsed.Thought != "" {
		block = append(block, "Thought: "+parsed.Thought)
	}
	block = append(block, "Action: "+parsed.ActionName)
	block = append(block, "Action Input: "+marshalInput(input))
	block = append(block, "Observation:\n"+obsTxt)
	return strings.TrimSpace(history + "\n\n" + strings.Join(block, "\n"))
}

func marshalInput(input map[string]any) string {
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}

func (a *Agent) stepStart(step int) {
	if a.Steps != nil {
		a.Steps.OnStepStart(step)
	}
}

func (a *Agent) modelOutput(raw string, parsed *ParseResult, elapsed time.Duration) {
	if a.Steps != nil {
		a.Steps.OnModelOutput(raw, parsed, elapsed)
	}
}

func (a *Agent) action(name string, input map[string]any) {
	if a.Steps != nil {
		a.Steps.OnAction(name, input)
	}
}

func (a *Agent) observation(obs string) {
	if a.Steps != nil {
		a.Steps.OnObservation(obs)
	}
}

func (a *Agent) final(answer string) {
	if a.Steps != nil {
		a.Steps.OnFinal(answer)
	}
}
