// Package ui renders chat REPL output: plain on pipes, styled on TTYs.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/soberm258/tiny-agents/internal/agent"
)

// Styles for step tracing.
var (
	stepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	actionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	observeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	finalStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// StepPrinter prints ReAct loop progress. It implements agent.StepObserver.
type StepPrinter struct {
	W      io.Writer
	Styled bool
}

// NewStepPrinter creates a printer; styling follows whether w is a TTY.
func NewStepPrinter(w io.Writer) *StepPrinter {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd())
	}
	return &StepPrinter{W: w, Styled: styled}
}

// Verify interface implementation at compile time.
var _ agent.StepObserver = (*StepPrinter)(nil)

func (s *StepPrinter) render(style lipgloss.Style, text string) string {
	if s.Styled {
		return style.Render(text)
	}
	return text
}

// OnStepStart implements agent.StepObserver.
func (s *StepPrinter) OnStepStart(step int) {
	fmt.Fprintf(s.W, "\n%s\n", s.render(stepStyle, fmt.Sprintf("--- 第 %d 步 ---", step)))
	fmt.Fprintln(s.W, s.render(dimStyle, "正在调用大语言模型..."))
}

// OnModelOutput implements agent.StepObserver.
func (s *StepPrinter) OnModelOutput(raw string, parsed *agent.ParseResult, elapsed time.Duration) {
	fmt.Fprintln(s.W, s.render(dimStyle, fmt.Sprintf("大语言模型响应（耗时 %.1fs）:", elapsed.Seconds())))
	if parsed.Kind() == agent.StepFinal {
		if parsed.Thought != "" {
			fmt.Fprintln(s.W, "Thought: "+parsed.Thought)
		}
		return
	}
	fmt.Fprintln(s.W, raw)
}

// OnAction implements agent.StepObserver.
func (s *StepPrinter) OnAction(name string, input map[string]any) {
	fmt.Fprintln(s.W, s.render(actionStyle, "行动: "+name))
	fmt.Fprintln(s.W, s.render(dimStyle, fmt.Sprintf("正在执行工具，参数: %v", input)))
}

// OnObservation implements agent.StepObserver.
func (s *StepPrinter) OnObservation(obs string) {
	fmt.Fprintln(s.W, s.render(observeStyle, "观察:"))
	fmt.Fprintln(s.W, obs)
}

// OnFinal implements agent.StepObserver.
func (s *StepPrinter) OnFinal(answer string) {
	fmt.Fprintln(s.W, s.render(finalStyle, "最终答案: ")+answer)
}
