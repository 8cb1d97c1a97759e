package generator

import (
	"context"
	"strings"
)

// MockLLM 一个简单的占位实现，便于 --dry-run 本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	var sb strings.Builder
	sb.WriteString("Draft post (dry run)\n\n")
	sb.WriteString("Generated from the request:\n\n")
	sb.WriteString(prompt.User)
	sb.WriteString("\n\nWhat would you add? Share your thoughts below.")
	return sb.String(), nil
}
