// Package llm wraps the external text-generation collaborator.
// Generation failures are reported in-band: the model output is replaced by
// a string starting with 生成失败 or API调用失败, which downstream stages
// treat as failed generation rather than parseable content.
package llm

import (
	"context"
	"strings"
)

// Failure prefixes recognized across the pipeline.
const (
	FailurePrefixGenerate = "生成失败"
	FailurePrefixAPI      = "API调用失败"
)

// LLM is the text-in/text-out capability the core consumes.
type LLM interface {
	// Generate returns the model's completion for prompt. On failure the
	// returned string starts with a failure prefix instead.
	Generate(ctx context.Context, prompt string) string
}

// IsFailure reports whether output signals failed generation.
func IsFailure(output string) bool {
	s := strings.TrimSpace(output)
	return s == "" ||
		strings.Contains(s, FailurePrefixGenerate) ||
		strings.Contains(s, FailurePrefixAPI)
}
