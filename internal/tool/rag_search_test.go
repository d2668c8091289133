package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/search"
)

// fakeBackend records the params it was called with and returns canned
// passages.
type fakeBackend struct {
	lastParams search.AdvancedParams
	results    []search.ScoredPassage
}

func (f *fakeBackend) SearchAdvanced(_ context.Context, p search.AdvancedParams) ([]search.ScoredPassage, error) {
	f.lastParams = p
	return f.results, nil
}

// cannedLLM returns a fixed string for every prompt.
type cannedLLM struct{ out string }

func (c cannedLLM) Generate(_ context.Context, _ string) string { return c.out }

func newRAGTool(backend SearchBackend, hyde string) *RAGSearchTool {
	return &RAGSearchTool{
		Default:      backend,
		LLM:          cannedLLM{out: hyde},
		RecallFactor: 4,
		RRFK:         60,
		BM25Weight:   1.0,
		EmbWeight:    1.0,
	}
}

func scoredResults() []search.ScoredPassage {
	return []search.ScoredPassage{
		{Score: 0.9, Passage: &chunk.Passage{ID: "c1", Text: "第一条证据", Meta: chunk.Meta{"source_path": "a.txt"}}},
		{Score: 0.7, Passage: &chunk.Passage{ID: "c2", Text: "第二条证据", Meta: chunk.Meta{"source_path": "b.txt"}}},
	}
}

func TestRAGSearch_HyDERouting(t *testing.T) {
	backend := &fakeBackend{results: scoredResults()}
	tl := newRAGTool(backend, "这是一段假设答案，包含关键实体与定义。")

	result, err := tl.Run(context.Background(), map[string]any{"query": "南京是什么", "topk": 2})

	require.NoError(t, err)
	// Original query drives BM25 and rerank; HyDE text drives embedding.
	assert.Equal(t, "南京是什么", backend.lastParams.BM25Query)
	assert.Equal(t, "南京是什么", backend.lastParams.RerankQuery)
	assert.Equal(t, "这是一段假设答案，包含关键实体与定义。", backend.lastParams.EmbQuery)
	assert.Equal(t, 2, backend.lastParams.TopN)
	assert.Equal(t, 8, backend.lastParams.RecallK)
	assert.Equal(t, "rrf", backend.lastParams.Fusion)

	assert.Equal(t, "南京是什么", result["query"])
	assert.Equal(t, 2, result["topk"])
	items, ok := result["items"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0]["rank"])
	assert.Equal(t, "c1", items[0]["id"])
	assert.Equal(t, "第一条证据", items[0]["text"])
}

func TestRAGSearch_HyDEFallbackOnFailure(t *testing.T) {
	backend := &fakeBackend{results: scoredResults()}
	tl := newRAGTool(backend, "生成失败: 连接超时")

	_, err := tl.Run(context.Background(), map[string]any{"query": "问题", "topk": 1})

	require.NoError(t, err)
	// Failed HyDE generation falls back to the raw query for embedding.
	assert.Equal(t, "问题", backend.lastParams.EmbQuery)
}

func TestRAGSearch_HydeTextTruncated(t *testing.T) {
	long := make([]rune, 0, 500)
	for i := 0; i < 500; i++ {
		long = append(long, '长')
	}
	backend := &fakeBackend{results: nil}
	tl := newRAGTool(backend, string(long))

	result, err := tl.Run(context.Background(), map[string]any{"query": "q", "topk": 1})

	require.NoError(t, err)
	assert.Len(t, []rune(result["hyde_text"].(string)), 400)
}

func TestRAGSearch_EmptyQueryRejected(t *testing.T) {
	tl := newRAGTool(&fakeBackend{}, "h")

	_, err := tl.Run(context.Background(), map[string]any{"query": "  "})

	assert.Error(t, err)
}

func TestRAGSearch_NamedRouting(t *testing.T) {
	def := &fakeBackend{results: nil}
	law := &fakeBackend{results: scoredResults()}
	tl := newRAGTool(def, "假设")
	tl.ByName = map[string]SearchBackend{"law": law}

	_, err := tl.Run(context.Background(), map[string]any{"query": "条文", "db_name": "law", "topk": 1})

	require.NoError(t, err)
	assert.Equal(t, "条文", law.lastParams.BM25Query)
	assert.Empty(t, def.lastParams.BM25Query)
}

func TestRAGSearch_UnknownDBRejected(t *testing.T) {
	tl := newRAGTool(&fakeBackend{}, "假设")
	tl.ByName = map[string]SearchBackend{"law": &fakeBackend{}}

	_, err := tl.Run(context.Background(), map[string]any{"query": "q", "db_name": "nope"})

	assert.Error(t, err)
}

func TestSearchOnline_MissingCredentials(t *testing.T) {
	t.Setenv("SERPAPI_API_KEY", "")
	t.Setenv("SERPAPI_KEY", "")

	tl := &SearchOnlineTool{}
	result, err := tl.Run(context.Background(), map[string]any{"query": "近期新闻"})

	// Missing credentials yield an error result, never an exception.
	require.NoError(t, err)
	assert.Empty(t, result["items"])
	assert.Contains(t, result["error"], "未配置")
}

func TestSearchOnline_EmptyQueryRejected(t *testing.T) {
	tl := &SearchOnlineTool{}
	_, err := tl.Run(context.Background(), map[string]any{"query": ""})
	assert.Error(t, err)
}
