// Package search runs the query pipeline: dual recall (BM25 + vector),
// fusion and cross-encoder reranking, over one or many databases.
package search

import (
	"sort"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter; k=60 is the
// empirically validated default across domains.
const DefaultRRFConstant = 60

// itemKey de-duplicates passages across recall sources: keyed by id when
// present, else by doc_id, else by full text.
func itemKey(p *chunk.Passage) string {
	if p == nil {
		return ""
	}
	if p.ID != "" {
		return "id:" + p.ID
	}
	if p.Meta != nil {
		if docID := p.Meta.GetString(chunk.MetaDocID); docID != "" {
			return "doc_id:" + docID
		}
	}
	return "text:" + p.Text
}

// RRFFuse combines the two recall lists with Reciprocal Rank Fusion:
// BM25 records sort by descending score, vector records by ascending
// distance, and each record at 1-based rank r contributes weight/(k+r) to
// its passage's fused score. The top topK passages return in fused order;
// ties keep first-contribution order (BM25 list first), so results are
// deterministic.
func RRFFuse(bm25, emb []store.RecallItem, topK, k int, bm25Weight, embWeight float64) []*chunk.Passage {
	if topK < 1 {
		topK = 1
	}
	if k < 1 {
		k = DefaultRRFConstant
	}

	bm25Sorted := make([]store.RecallItem, len(bm25))
	copy(bm25Sorted, bm25)
	sort.SliceStable(bm25Sorted, func(i, j int) bool { return bm25Sorted[i].Score > bm25Sorted[j].Score })

	embSorted := make([]store.RecallItem, len(emb))
	copy(embSorted, emb)
	sort.SliceStable(embSorted, func(i, j int) bool { return embSorted[i].Score < embSorted[j].Score })

	type fused struct {
		passage *chunk.Passage
		score   float64
		order   int
	}
	scores := map[string]*fused{}
	order := 0

	accumulate := func(items []store.RecallItem, weight float64) {
		for rank, item := range items {
			key := itemKey(item.Passage)
			f, ok := scores[key]
			if !ok {
				f = &fused{passage: item.Passage, order: order}
				order++
				scores[key] = f
			}
			f.score += weight / float64(k+rank+1)
		}
	}
	accumulate(bm25Sorted, bm25Weight)
	accumulate(embSorted, embWeight)

	out := make([]*fused, 0, len(scores))
	for _, f := range scores {
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	if len(out) > topK {
		out = out[:topK]
	}
	passages := make([]*chunk.Passage, len(out))
	for i, f := range out {
		passages[i] = f.passage
	}
	return passages
}

// DedupFuse is the alternative fusion: BM25 records in rank order, then
// vector records in rank order, inserting each unseen key, truncated to
// topK.
func DedupFuse(bm25, emb []store.RecallItem, topK int) []*chunk.Passage {
	if topK < 1 {
		topK = 1
	}

	bm25Sorted := make([]store.RecallItem, len(bm25))
	copy(bm25Sorted, bm25)
	sort.SliceStable(bm25Sorted, func(i, j int) bool { return bm25Sorted[i].Score > bm25Sorted[j].Score })

	embSorted := make([]store.RecallItem, len(emb))
	copy(embSorted, emb)
	sort.SliceStable(embSorted, func(i, j int) bool { return embSorted[i].Score < embSorted[j].Score })

	seen := map[string]struct{}{}
	var out []*chunk.Passage
	for _, items := range [][]store.RecallItem{bm25Sorted, embSorted} {
		for _, item := range items {
			key := itemKey(item.Passage)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item.Passage)
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
