package generator

import (
	"context"
	"errors"
)

// ErrMalformedResponse 表示响应缺少 choices[0].message.content。
var ErrMalformedResponse = errors.New("malformed chat completion response")

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Model      string
	APIKey     string
	BaseURL    string
	Referer    string
	Title      string
	TimeoutSec int
}
