package tool

import (
	"context"
	"fmt"
	"strings"
)

// Registry maps tool names to capabilities. Registration order is preserved
// so the prompt's tool catalog is deterministic.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool. Empty and duplicate names fail.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Spec().Name)
	if name == "" {
		return fmt.Errorf("工具 name 不能为空")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("工具已注册：%s", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("未注册工具：%s", name)
	}
	return t, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FormatForPrompt renders the tool catalog for the system prompt.
func (r *Registry) FormatForPrompt() string {
	var blocks []string
	for _, name := range r.order {
		t := r.tools[name]
		spec := t.Spec()
		usage := strings.TrimSpace(t.PromptUsage())
		if usage != "" {
			blocks = append(blocks, fmt.Sprintf("Name: %s\nDescription: %s\nUsage:\n%s", spec.Name, spec.Description, usage))
		} else {
			blocks = append(blocks, fmt.Sprintf("Name: %s\nDescription: %s", spec.Name, spec.Description))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Execute normalizes arguments and runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	normalized, err := t.NormalizeArguments(args)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, normalized)
}
