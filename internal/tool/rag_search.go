package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/soberm258/tiny-agents/internal/llm"
	"github.com/soberm258/tiny-agents/internal/rag"
	"github.com/soberm258/tiny-agents/internal/search"
)

// SearchBackend is the slice of the search pipeline the tool needs.
type SearchBackend interface {
	SearchAdvanced(ctx context.Context, p search.AdvancedParams) ([]search.ScoredPassage, error)
}

// hydeTextLimit caps the hypothetical answer echoed in the tool result.
const hydeTextLimit = 400

// RAGSearchTool retrieves evidence with the default strategy
// HyDE + RRF + rerank: the original query drives BM25 and reranking, the
// hypothetical answer drives dense recall.
type RAGSearchTool struct {
	// Default answers queries without a db_name.
	Default SearchBackend
	// ByName routes db_name to a database in a multi-DB setup.
	ByName map[string]SearchBackend

	LLM          llm.LLM
	RecallFactor int
	RRFK         int
	BM25Weight   float64
	EmbWeight    float64
}

// Verify interface implementation at compile time.
var _ Tool = (*RAGSearchTool)(nil)

// Spec implements Tool.
func (t *RAGSearchTool) Spec() Spec {
	desc := "在当前数据库中进行证据检索（默认策略：HyDE + RRF + rerank），返回带元数据的片段列表。" +
		"当你需要从知识库中寻找答案时使用。"
	if len(t.ByName) > 0 {
		desc += "支持通过 db_name 选择数据库。" +
			"用户询问法律问题时，必须查找law库，而case库可选择作为案例补充使用。" +
			"注意，使用case库时,topk不宜过大，推荐为'topk: 3'，以免返回过多无关案例片段影响回答质量。"
	}
	return Spec{Name: "rag_search", Description: desc}
}

// PromptUsage implements Tool.
func (t *RAGSearchTool) PromptUsage() string {
	usage := "Action Input 必须是 JSON 对象，字段如下：\n" +
		"{\n" +
		"  \"query\": \"用户问题/检索查询（必填）\",\n" +
		"  \"topk\": 5"
	if len(t.ByName) > 0 {
		usage += ",\n  \"db_name\": \"选择使用的数据库\""
	}
	usage += "\n}\n"
	return usage
}

// NormalizeArguments implements Tool.
func (t *RAGSearchTool) NormalizeArguments(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	return args, nil
}

// Run implements Tool.
func (t *RAGSearchTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return nil, fmt.Errorf("rag_search.query 不能为空")
	}
	topk := intArg(args, "topk", 5)
	if topk < 1 {
		topk = 1
	}

	recallFactor := t.RecallFactor
	if recallFactor <= 0 {
		recallFactor = 4
	}
	recallK := topk * recallFactor
	if recallK < 1 {
		recallK = 1
	}

	// HyDE: the hypothetical answer's embedding recalls; failed generation
	// falls back to the raw query.
	hydeText := strings.TrimSpace(llm.GenerateWithTimeout(ctx, t.LLM, rag.BuildHydePrompt(query), 0))
	if llm.IsFailure(hydeText) {
		hydeText = query
	}

	backend := t.Default
	dbName := strings.TrimSpace(stringArg(args, "db_name"))
	if dbName != "" {
		named, ok := t.ByName[dbName]
		if !ok {
			return nil, fmt.Errorf("数据库不存在：%s", dbName)
		}
		backend = named
	}
	if backend == nil {
		return nil, fmt.Errorf("rag_search 没有可用的数据库")
	}

	reranked, err := backend.SearchAdvanced(ctx, search.AdvancedParams{
		RerankQuery: query,
		BM25Query:   query,
		EmbQuery:    hydeText,
		TopN:        topk,
		RecallK:     recallK,
		Fusion:      "rrf",
		RRFK:        t.RRFK,
		BM25Weight:  t.BM25Weight,
		EmbWeight:   t.EmbWeight,
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(reranked))
	for i, sp := range reranked {
		var meta map[string]any
		var id, text string
		if sp.Passage != nil {
			meta = sp.Passage.Meta
			id = sp.Passage.ID
			text = sp.Passage.Text
		}
		if meta == nil {
			meta = map[string]any{}
		}
		items = append(items, map[string]any{
			"rank":  i + 1,
			"score": sp.Score,
			"id":    id,
			"text":  text,
			"meta":  meta,
		})
	}

	echo := hydeText
	if runes := []rune(echo); len(runes) > hydeTextLimit {
		echo = string(runes[:hydeTextLimit])
	}

	return map[string]any{
		"query":     query,
		"hyde_text": echo,
		"topk":      topk,
		"items":     items,
	}, nil
}

// NamedBackend adapts one database of a MultiDBSearcher to SearchBackend.
type NamedBackend struct {
	Multi *search.MultiDBSearcher
	Name  string
}

// SearchAdvanced implements SearchBackend.
func (n NamedBackend) SearchAdvanced(ctx context.Context, p search.AdvancedParams) ([]search.ScoredPassage, error) {
	return n.Multi.SearchDB(ctx, n.Name, p)
}
