// Package store provides the persistence layer for one database: the BM25
// lexical index (bm_corpus/), the vector index (faiss_idx/) and the chunk
// manifest (split_sentence.jsonl). A database is built once, then read-only.
package store

import (
	"github.com/soberm258/tiny-agents/internal/chunk"
)

// Database layout names.
const (
	BMCorpusDirName = "bm_corpus"
	VectorDirName   = "faiss_idx"
	ManifestName    = "split_sentence.jsonl"
)

// RecallItem is one recall record: the passage's insertion index, the
// passage itself and the raw score. For BM25 higher is better; for vector
// recall the score is an L2 distance and smaller is better. Consumers must
// respect this asymmetry.
type RecallItem struct {
	Index   int
	Passage *chunk.Passage
	Score   float64
}
