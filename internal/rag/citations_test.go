package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/search"
)

func scored(text string, meta chunk.Meta) search.ScoredPassage {
	return search.ScoredPassage{Score: 0.5, Passage: &chunk.Passage{ID: "id", Text: text, Meta: meta}}
}

func TestBuildContextAndCitations_CountsMatch(t *testing.T) {
	passages := []search.ScoredPassage{
		scored("第一段", chunk.Meta{"source_path": "a.txt"}),
		scored("第二段", chunk.Meta{"source_path": "b.pdf", "page": 2}),
		scored("第三段", chunk.Meta{}),
	}

	contextBlock, cites := BuildContextAndCitations(passages)

	// Citation count equals context entry count equals reranker output.
	assert.Len(t, cites, 3)
	assert.Len(t, strings.Split(contextBlock, "\n"), 3)
	assert.True(t, strings.HasPrefix(strings.Split(contextBlock, "\n")[0], "[1] "))
}

func TestBuildContextAndCitations_LawPriority(t *testing.T) {
	meta := chunk.Meta{
		"source_path": "civil_code.txt",
		"law":         "中华人民共和国民法典",
		"book":        "第三编",
		"chapter":     "第二章",
		"article":     "第四百六十四条",
	}

	_, cites := BuildContextAndCitations([]search.ScoredPassage{scored("条文", meta)})

	require.Len(t, cites, 1)
	assert.Contains(t, cites[0], "civil_code.txt | 中华人民共和国民法典 | 第三编 | 第二章 | 未分节 | 第四百六十四条")
}

func TestBuildContextAndCitations_CasePriority(t *testing.T) {
	meta := chunk.Meta{
		"source_path":   "testdata/missing_case.pdf",
		"pdf_mode":      "case",
		"case_title":    "张某诉李某案",
		"page_start":    3,
		"page_end":      5,
		"case_sections": []string{"基本案情", "裁判理由"},
	}

	_, cites := BuildContextAndCitations([]search.ScoredPassage{scored("案情", meta)})

	require.Len(t, cites, 1)
	assert.Contains(t, cites[0], "张某诉李某案")
	assert.Contains(t, cites[0], "第3~5页")
	assert.Contains(t, cites[0], "章节=基本案情,裁判理由")
}

func TestBuildContextAndCitations_URLPriority(t *testing.T) {
	meta := chunk.Meta{"url": "https://example.com/page", "source_path": "online"}

	_, cites := BuildContextAndCitations([]search.ScoredPassage{scored("网页", meta)})

	require.Len(t, cites, 1)
	assert.Equal(t, "[1] url=https://example.com/page", cites[0])
}

func TestBuildContextAndCitations_PDFPage(t *testing.T) {
	meta := chunk.Meta{"source_path": "paper.pdf", "page": 7}

	_, cites := BuildContextAndCitations([]search.ScoredPassage{scored("段落", meta)})

	require.Len(t, cites, 1)
	assert.Equal(t, "[1] paper.pdf 第7页", cites[0])
}

func TestBuildContextAndCitations_GenericAndUnknown(t *testing.T) {
	_, cites := BuildContextAndCitations([]search.ScoredPassage{
		scored("文本", chunk.Meta{"source_path": "notes.md"}),
		scored("匿名", chunk.Meta{}),
	})

	require.Len(t, cites, 2)
	assert.Equal(t, "[1] notes.md", cites[0])
	assert.Equal(t, "[2] 未知来源", cites[1])
}

func TestAppendCitations(t *testing.T) {
	out := AppendCitations("回答正文", []string{"[1] a.txt", "[2] 未知来源"})

	assert.Contains(t, out, CitationHeader)
	assert.True(t, strings.HasSuffix(out, "[2] 未知来源"))
	assert.True(t, strings.HasPrefix(out, "回答正文"))
}

func TestAppendCitations_NoCitations(t *testing.T) {
	assert.Equal(t, "回答", AppendCitations("回答", nil))
}

func TestFormatSource_Unknown(t *testing.T) {
	assert.Equal(t, "未知来源", FormatSource(chunk.Meta{}))
}

func TestIsCaseItem(t *testing.T) {
	assert.True(t, IsCaseItem(chunk.Meta{"pdf_mode": "case"}))
	assert.True(t, IsCaseItem(chunk.Meta{"case_title": "某案"}))
	assert.False(t, IsCaseItem(chunk.Meta{"source_path": "a.txt"}))
}
