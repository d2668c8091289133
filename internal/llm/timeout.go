package llm

import (
	"context"
	"fmt"
	"time"
)

// GenerateWithTimeout runs one LLM invocation on a worker goroutine with a
// wall-clock deadline. On timeout the worker is abandoned (its eventual
// output discarded) and the fixed failure string is returned; the caller
// must not parse it as an action.
func GenerateWithTimeout(ctx context.Context, model LLM, prompt string, timeout time.Duration) string {
	if timeout <= 0 {
		return model.Generate(ctx, prompt)
	}

	workerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- model.Generate(workerCtx, prompt)
	}()

	select {
	case out := <-done:
		return out
	case <-workerCtx.Done():
		if ctx.Err() != nil {
			return fmt.Sprintf("%s: 调用被取消（%v）", FailurePrefixGenerate, ctx.Err())
		}
		return fmt.Sprintf("%s: LLM 调用超时（>%ds）", FailurePrefixGenerate, int(timeout.Seconds()))
	}
}
