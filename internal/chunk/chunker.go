package chunk

import (
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
)

// pdfMergeUnits is the target passage size for PDF pages: sentences within
// one page merge until they reach this many units (runes for CJK, words
// otherwise).
const pdfMergeUnits = 300

// Options configures document chunking.
type Options struct {
	SentenceSize int
	MinChunkLen  int
}

// ChunkDocument splits one document into ordered passages.
// Chunk ids are derived from the document id and the chunk index, so
// identical input bytes and configuration yield identical passages.
func ChunkDocument(doc *Document, opts Options) []*Passage {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}
	if opts.MinChunkLen <= 0 {
		opts.MinChunkLen = 20
	}

	meta := doc.Meta
	if meta == nil {
		meta = Meta{}
	}

	docID := doc.ID
	if docID == "" {
		docID = meta.GetString(MetaDocID)
	}
	if docID == "" {
		docID = MakeDocID(meta.GetString(MetaSourcePath), meta.GetInt(MetaPage), meta.GetInt(MetaRecordIndex))
	}

	splitter := NewSentenceSplitter(opts.SentenceSize)
	sents := splitter.SplitText(text)

	switch {
	case IsLawDoc(meta):
		// Statutes merge first so enumeration items never stand alone,
		// then get filtered by min length.
		sents = MergeLawSentences(sents, splitter.SentenceSize)
	case meta.GetString(MetaType) == "pdf" && meta.GetString(MetaPDFMode) != PDFModeCase:
		sents = mergePageSentences(sents)
	}

	lawPrefix := ""
	if IsLawDoc(meta) {
		lawPrefix = LawIndexPrefix(meta)
	}

	out := make([]*Passage, 0, len(sents))
	idx := 0
	for _, sent := range sents {
		if utf8.RuneCountInString(sent) < opts.MinChunkLen {
			continue
		}
		passMeta := meta.Clone()
		passMeta[MetaChunkIndex] = idx
		p := &Passage{
			ID:   MakeChunkID(docID, idx),
			Text: sent,
			Meta: passMeta,
		}
		if lawPrefix != "" {
			p.IndexText = strings.TrimSpace(lawPrefix + "\n" + sent)
		}
		out = append(out, p)
		idx++
	}
	return out
}

// mergePageSentences merges consecutive sentences of one PDF page until
// their combined length reaches pdfMergeUnits.
func mergePageSentences(sents []string) []string {
	var out []string
	cur := ""
	for _, sent := range sents {
		if cur == "" {
			cur = sent
			continue
		}
		if TextUnitLen(cur)+TextUnitLen(sent) < pdfMergeUnits {
			cur += " " + sent
		} else {
			out = append(out, cur)
			cur = sent
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// ChunkAll chunks documents on a worker pool sized to the CPU count.
// Each task is pure, so the only synchronization is gathering results;
// output order follows the input document order regardless of completion
// order.
func ChunkAll(docs []*Document, opts Options) ([]*Passage, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	results := make([][]*Passage, len(docs))
	var wg sync.WaitGroup

	type task struct {
		i   int
		doc *Document
	}

	pool, err := ants.NewPoolWithFunc(runtime.NumCPU(), func(arg any) {
		defer wg.Done()
		t := arg.(task)
		results[t.i] = ChunkDocument(t.doc, opts)
	})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	for i, doc := range docs {
		wg.Add(1)
		if err := pool.Invoke(task{i: i, doc: doc}); err != nil {
			wg.Done()
			slog.Error("chunk_task_failed", slog.Int("doc", i), slog.String("error", err.Error()))
		}
	}
	wg.Wait()

	var out []*Passage
	for _, ps := range results {
		out = append(out, ps...)
	}
	return out, nil
}
