package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// MarkdownToText parses Markdown and returns its plain-text content.
// Block boundaries become newlines; inline markup is dropped.
func MarkdownToText(src string) string {
	source := []byte(src)
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
		case *ast.CodeBlock:
			writeLines(&sb, source, t)
		case *ast.FencedCodeBlock:
			writeLines(&sb, source, t)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func writeLines(sb *strings.Builder, source []byte, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
}
