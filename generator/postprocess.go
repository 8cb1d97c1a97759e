package generator

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// PostProcess 校验模型输出；plain 为 true 时把 Markdown 压平成纯文本。
func PostProcess(raw string, plain bool) (string, error) {
	post := strings.TrimSpace(raw)
	if post == "" {
		return "", errors.New("model returned empty post")
	}
	if !plain {
		return post, nil
	}
	flat := strings.TrimSpace(flattenMarkdown([]byte(post)))
	if flat == "" {
		return post, nil
	}
	return flat, nil
}

// LinkedIn 不渲染 Markdown：标题和段落以空行分隔，无序列表项改成 "• " 开头，
// 有序列表保留编号，强调符号直接去掉。
func flattenMarkdown(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.URL(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				b.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				b.WriteString(listMarker(node))
			}
		case *ast.TextBlock:
			if !entering {
				b.WriteString("\n")
			}
		case *ast.Paragraph, *ast.Heading, *ast.Blockquote, *ast.ThematicBreak:
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.List:
			if !entering {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return blankRuns.ReplaceAllString(b.String(), "\n\n")
}

func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "• "
	}
	n := list.Start
	for prev := item.PreviousSibling(); prev != nil; prev = prev.PreviousSibling() {
		n++
	}
	return strconv.Itoa(n) + ". "
}
