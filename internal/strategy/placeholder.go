package strategy

import "github.com/hfi/llm-secret-interceptor/pkg/placeholder"

// PlaceholderStrategy is the default strategy: it rewrites a detected
// value to its numbered `<TYPE_N>` placeholder.
type PlaceholderStrategy struct{}

func (PlaceholderStrategy) Name() string     { return "placeholder" }
func (PlaceholderStrategy) Reversible() bool { return true }

func (PlaceholderStrategy) Render(entityType, _ string, index int) string {
	return placeholder.Format(entityType, index)
}
