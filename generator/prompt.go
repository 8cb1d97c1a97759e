package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的一次 system + user 请求及采样参数。
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// BuildPostPrompt builds the single-post prompt for one topic/angle/format row.
func BuildPostPrompt(spec PostSpec) Prompt {
	var sb strings.Builder
	sb.WriteString("Write a professional, motivational LinkedIn post (~300-400 words) on this topic:\n\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\n\n", strings.TrimSpace(spec.Topic)))
	sb.WriteString(fmt.Sprintf("Angle: %s\n\n", strings.TrimSpace(spec.Angle)))
	sb.WriteString(fmt.Sprintf("Format: %s\n\n", strings.TrimSpace(spec.Format)))
	sb.WriteString("Tone: storytelling combined with technical expertise. Include a short closing CTA.")

	return Prompt{
		System:      "You are a professional LinkedIn content writer.",
		User:        sb.String(),
		Temperature: 0.4,
		MaxTokens:   800,
	}
}

// BuildBlogPrompt builds the shorter prompt used by the batch blog writer.
func BuildBlogPrompt(topic string) Prompt {
	return Prompt{
		System:      "You are a professional blog writer.",
		User:        fmt.Sprintf("Write a 300-word blog on the topic: %s", strings.TrimSpace(topic)),
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

// BuildImagePrompt describes the hero image for a post.
func BuildImagePrompt(spec PostSpec) string {
	return fmt.Sprintf(
		"Create a clean, professional LinkedIn hero image for: '%s'. Theme: %s. Style: modern, minimal, high-contrast, suitable for a technical audience.",
		strings.TrimSpace(spec.Topic),
		strings.TrimSpace(spec.Angle),
	)
}
