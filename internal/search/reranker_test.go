package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soberm258/tiny-agents/internal/chunk"
)

func TestNoOpReranker_KeepsOrder(t *testing.T) {
	passages := []*chunk.Passage{p("A"), p("B"), p("C")}

	out, err := NoOpReranker{}.Rank(context.Background(), "q", passages, 2)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Passage.ID)
	assert.Equal(t, "B", out[1].Passage.ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestSelectTopN_StableTies(t *testing.T) {
	passages := []*chunk.Passage{p("A"), p("B"), p("C")}
	scores := []float64{0.5, 0.5, 0.9}

	out := selectTopN(scores, passages, 3)

	// C wins; the A/B tie keeps input order.
	assert.Equal(t, "C", out[0].Passage.ID)
	assert.Equal(t, "A", out[1].Passage.ID)
	assert.Equal(t, "B", out[2].Passage.ID)
}

func TestHTTPReranker_RanksByRelevance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "测试查询", req.Query)

		// Score the second document highest.
		resp := map[string]any{"results": []map[string]any{}}
		results := make([]map[string]any, 0, len(req.Documents))
		for i := range req.Documents {
			score := 0.1
			if i == 1 {
				score = 0.9
			}
			results = append(results, map[string]any{"index": i, "relevance_score": score})
		}
		resp["results"] = results
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ranker := NewHTTPReranker(server.URL, "test-reranker", "")
	passages := []*chunk.Passage{p("A"), p("B"), p("C")}

	out, err := ranker.Rank(context.Background(), "测试查询", passages, 2)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].Passage.ID)
	assert.InDelta(t, 0.9, out[0].Score, 1e-9)
}

func TestHTTPReranker_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	ranker := NewHTTPReranker(server.URL, "test-reranker", "")

	_, err := ranker.Rank(context.Background(), "q", []*chunk.Passage{p("A")}, 1)

	assert.Error(t, err)
}

func TestHTTPReranker_EmptyInput(t *testing.T) {
	ranker := NewHTTPReranker("http://127.0.0.1:0", "m", "")

	out, err := ranker.Rank(context.Background(), "q", nil, 3)

	require.NoError(t, err)
	assert.Empty(t, out)
}
