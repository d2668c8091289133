package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/soberm258/tiny-agents/internal/chunk"
)

// ScoredPassage is one reranked result.
type ScoredPassage struct {
	Score   float64
	Passage *chunk.Passage
}

// Reranker scores (query, passage) pairs with a cross-encoder and returns
// the top n by descending score. Ties break by input order (stable).
type Reranker interface {
	Rank(ctx context.Context, query string, passages []*chunk.Passage, topN int) ([]ScoredPassage, error)
}

// rerankBatchSize bounds how many documents go to the cross-encoder per
// request.
const rerankBatchSize = 32

// HTTPReranker calls an OpenAI-compatible /rerank endpoint
// ({model, query, documents, top_n} -> results[{index, relevance_score}]).
type HTTPReranker struct {
	model   string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPReranker creates a cross-encoder client.
func NewHTTPReranker(baseURL, model, apiKey string) *HTTPReranker {
	return &HTTPReranker{
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Verify interface implementation at compile time.
var _ Reranker = (*HTTPReranker)(nil)

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Rank scores passages in batches and returns the global top n.
func (r *HTTPReranker) Rank(ctx context.Context, query string, passages []*chunk.Passage, topN int) ([]ScoredPassage, error) {
	if topN < 1 {
		topN = 1
	}
	if len(passages) == 0 {
		return []ScoredPassage{}, nil
	}

	scores := make([]float64, len(passages))
	for start := 0; start < len(passages); start += rerankBatchSize {
		end := start + rerankBatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]
		docs := make([]string, len(batch))
		for i, p := range batch {
			docs[i] = p.Text
		}
		batchScores, err := r.scoreBatch(ctx, query, docs)
		if err != nil {
			return nil, err
		}
		copy(scores[start:end], batchScores)
	}

	return selectTopN(scores, passages, topN), nil
}

func (r *HTTPReranker) scoreBatch(ctx context.Context, query string, docs []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
		TopN:      len(docs),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rerank response read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed rerankResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("rerank response parse failed: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("rerank API error: %s", parsed.Error.Message)
	}

	scores := make([]float64, len(docs))
	for _, res := range parsed.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.RelevanceScore
		}
	}
	return scores, nil
}

// NoOpReranker keeps fusion order, assigning decreasing scores.
// Used when no reranker endpoint is configured.
type NoOpReranker struct{}

// Verify interface implementation at compile time.
var _ Reranker = (*NoOpReranker)(nil)

// Rank returns the first topN passages in input order.
func (NoOpReranker) Rank(_ context.Context, _ string, passages []*chunk.Passage, topN int) ([]ScoredPassage, error) {
	if topN < 1 {
		topN = 1
	}
	out := make([]ScoredPassage, 0, len(passages))
	for i, p := range passages {
		out = append(out, ScoredPassage{Score: 1.0 - float64(i)*0.01, Passage: p})
	}
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// selectTopN sorts by descending score with ties broken by input order.
func selectTopN(scores []float64, passages []*chunk.Passage, topN int) []ScoredPassage {
	idxs := make([]int, len(passages))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		if scores[idxs[a]] != scores[idxs[b]] {
			return scores[idxs[a]] > scores[idxs[b]]
		}
		return idxs[a] < idxs[b]
	})
	if len(idxs) > topN {
		idxs = idxs[:topN]
	}
	out := make([]ScoredPassage, len(idxs))
	for i, idx := range idxs {
		out[i] = ScoredPassage{Score: scores[idx], Passage: passages[idx]}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
