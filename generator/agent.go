package generator

import (
	"context"
	"errors"
	"fmt"

	"postgen/logger"
	"postgen/retry"
)

// Agent 负责调用 LLM 生成帖子正文，失败时按固定次数重试。
type Agent struct {
	llm    LLMClient
	policy retry.Policy
	plain  bool
	log    *logger.Logger
}

func NewAgent(llm LLMClient, policy retry.Policy, plain bool, log *logger.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, policy: policy, plain: plain, log: logger.OrNop(log)}, nil
}

// Generate sends prompt and returns the post-processed text. An empty reply
// counts as a failed attempt; the final failure is returned to the caller.
func (a *Agent) Generate(ctx context.Context, prompt Prompt) (string, error) {
	var post string
	err := a.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		raw, err := a.llm.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		out, err := PostProcess(raw, a.plain)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		post = out
		return nil
	}, func(attempt int, err error) {
		a.log.Warn("post generation attempt failed", "attempt", attempt, "error", err)
	})
	if err != nil {
		return "", fmt.Errorf("generate post: %w", err)
	}
	return post, nil
}
