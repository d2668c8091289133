// Package rag orchestrates the retrieval-augmented pipeline: database
// build/load, strategy-driven search, and the citation surface appended to
// final answers.
package rag

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/ingest"
	"github.com/soberm258/tiny-agents/internal/search"
)

// CitationHeader introduces the citation list appended verbatim to the
// final answer.
const CitationHeader = "引用信息如下："

// caseContextLimit truncates expanded case blocks in the context.
const caseContextLimit = 6000

// truncationSentinel marks a truncated case block.
const truncationSentinel = "…（已截断）"

// caseCache avoids re-parsing the same case PDF across queries.
var (
	caseCache     *lru.Cache[string, *ingest.CaseSections]
	caseCacheOnce sync.Once
)

func getCaseCache() *lru.Cache[string, *ingest.CaseSections] {
	caseCacheOnce.Do(func() {
		caseCache, _ = lru.New[string, *ingest.CaseSections](64)
	})
	return caseCache
}

// IsCaseItem reports whether meta marks a judicial-case passage.
func IsCaseItem(meta chunk.Meta) bool {
	return meta.GetString(chunk.MetaPDFMode) == chunk.PDFModeCase ||
		meta.Has(chunk.MetaCaseTitle) ||
		meta.Has(chunk.MetaCaseParaStart) ||
		meta.Has(chunk.MetaCaseParaEnd)
}

// ExpandCaseBlocks re-reads the case PDF (cached) and renders the whole
// 基本案情/裁判理由/裁判要旨 blocks under the case title.
func ExpandCaseBlocks(meta chunk.Meta) string {
	sourcePath := strings.TrimSpace(meta.GetString(chunk.MetaSourcePath))
	if sourcePath == "" {
		return ""
	}

	cache := getCaseCache()
	cs, ok := cache.Get(sourcePath)
	if !ok {
		parsed, err := ingest.ReadCasePDFSections(sourcePath)
		if err != nil {
			parsed = &ingest.CaseSections{}
		}
		cache.Add(sourcePath, parsed)
		cs = parsed
	}

	title := strings.TrimSpace(cs.Title)
	if title == "" {
		title = strings.TrimSpace(meta.GetString(chunk.MetaCaseTitle))
	}

	var blocks []string
	for _, name := range ingest.CaseSectionNames {
		if cs.Sections == nil {
			break
		}
		body := strings.TrimSpace(cs.Sections[name])
		if body != "" {
			blocks = append(blocks, "【"+name+"】\n"+body)
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	joined := strings.Join(blocks, "\n\n")
	if title != "" {
		joined = strings.TrimSpace(title + "\n" + joined)
	}
	return joined
}

// FormatSource renders one passage's source locator by metadata priority:
// law location, case location, online URL (handled by the caller), page-
// qualified file, bare file, unknown.
func FormatSource(meta chunk.Meta) string {
	sourcePath := strings.TrimSpace(meta.GetString(chunk.MetaSourcePath))

	if chunk.IsLawDoc(meta) {
		loc := FormatLawLocation(meta)
		if sourcePath != "" {
			return sourcePath + " | " + loc
		}
		return loc
	}

	if IsCaseItem(meta) {
		var parts []string
		if sourcePath != "" {
			parts = append(parts, sourcePath)
		}
		if title := strings.TrimSpace(meta.GetString(chunk.MetaCaseTitle)); title != "" {
			parts = append(parts, title)
		}
		ps := meta.GetInt(chunk.MetaPageStart)
		pe := meta.GetInt(chunk.MetaPageEnd)
		page := meta.GetInt(chunk.MetaPage)
		if ps > 0 && pe > 0 {
			parts = append(parts, fmt.Sprintf("第%d~%d页", ps, pe))
		} else if page > 0 {
			parts = append(parts, fmt.Sprintf("第%d页", page))
		}
		if sections := dedupStrings(meta.GetStrings(chunk.MetaCaseSections)); len(sections) > 0 {
			parts = append(parts, "章节="+strings.Join(sections, ","))
		}
		if joined := strings.TrimSpace(strings.Join(parts, " | ")); joined != "" {
			return joined
		}
		if sourcePath != "" {
			return sourcePath
		}
		return "未知来源"
	}

	if sourcePath != "" {
		if page := meta.GetInt(chunk.MetaPage); page > 0 {
			return fmt.Sprintf("%s 第%d页", sourcePath, page)
		}
		return sourcePath
	}
	return "未知来源"
}

// FormatLawLocation joins law metadata with 未知X placeholders for missing
// structural fields.
func FormatLawLocation(meta chunk.Meta) string {
	law := strings.TrimSpace(meta.GetString(chunk.MetaLaw))
	book := strings.TrimSpace(meta.GetString(chunk.MetaBook))
	if book == "" {
		book = "未知编"
	}
	chapter := strings.TrimSpace(meta.GetString(chunk.MetaChapter))
	if chapter == "" {
		chapter = "未知章"
	}
	section := strings.TrimSpace(meta.GetString(chunk.MetaSection))
	if section == "" {
		section = "未分节"
	}
	article := strings.TrimSpace(meta.GetString(chunk.MetaArticle))
	if article == "" {
		article = "未知条"
	}

	var parts []string
	for _, p := range []string{law, book, chapter, section, article} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

// BuildContextAndCitations renders the numbered context block fed to the
// final prompt and the citation line per passage, in rank order. Both lists
// stay the same length as the reranker output.
func BuildContextAndCitations(scored []search.ScoredPassage) (string, []string) {
	contextLines := make([]string, 0, len(scored))
	citeLines := make([]string, 0, len(scored))

	for i, sp := range scored {
		no := i + 1
		if sp.Passage == nil {
			contextLines = append(contextLines, fmt.Sprintf("[%d] ", no))
			citeLines = append(citeLines, fmt.Sprintf("[%d] 未知来源", no))
			continue
		}
		meta := sp.Passage.Meta
		if meta == nil {
			meta = chunk.Meta{}
		}

		text := strings.TrimSpace(sp.Passage.Text)
		if IsCaseItem(meta) {
			if expanded := ExpandCaseBlocks(meta); expanded != "" {
				if runes := []rune(expanded); len(runes) > caseContextLimit {
					expanded = string(runes[:caseContextLimit]) + truncationSentinel
				}
				text = expanded
			}
		}
		contextLines = append(contextLines, fmt.Sprintf("[%d] %s", no, text))

		if url := strings.TrimSpace(meta.GetString(chunk.MetaURL)); url != "" {
			citeLines = append(citeLines, fmt.Sprintf("[%d] url=%s", no, url))
			continue
		}
		citeLines = append(citeLines, fmt.Sprintf("[%d] %s", no, FormatSource(meta)))
	}

	return strings.Join(contextLines, "\n"), citeLines
}

// AppendCitations attaches the citation list to a final answer.
func AppendCitations(answer string, citeLines []string) string {
	if len(citeLines) == 0 {
		return answer
	}
	return strings.TrimRight(answer, " \n") + "\n\n" + CitationHeader + "\n" + strings.Join(citeLines, "\n")
}

func dedupStrings(in []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
