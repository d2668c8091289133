package ingest

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/soberm258/tiny-agents/internal/chunk"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

// hyphenRe matches mid-line hyphenation left by PDF extraction.
var hyphenRe = regexp.MustCompile(`-\n(\w+)`)

// ReadPDFPages extracts the raw text of each page, newlines preserved.
func ReadPDFPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, ragerr.IngestError("PDF 页面解析失败："+path, err)
		}
		pages = append(pages, strings.ReplaceAll(text, "\r\n", "\n"))
	}
	return pages, nil
}

// NormalizePDFPage removes mid-line hyphenation and flattens the remaining
// newlines into spaces.
func NormalizePDFPage(text string) string {
	text = hyphenRe.ReplaceAllString(text, "$1")
	return strings.ReplaceAll(text, "\n", " ")
}

// isReferenceHeading reports whether a sentence opens the bibliography.
func isReferenceHeading(sent string) bool {
	s := strings.TrimSpace(sent)
	lower := strings.ToLower(s)
	return lower == "references" ||
		strings.HasPrefix(lower, "references ") ||
		s == "参考文献" ||
		strings.HasPrefix(s, "参考文献")
}

// CleanPDFPages normalizes each page and truncates the document at the
// first bibliography heading: the sentence that opens it and everything
// after it — on that page and on all later pages — is dropped.
func CleanPDFPages(pages []string, sentenceSize int) []string {
	splitter := chunk.NewSentenceSplitter(sentenceSize)
	out := make([]string, 0, len(pages))
	for _, raw := range pages {
		text := NormalizePDFPage(raw)
		sents := splitter.SplitText(text)
		var kept []string
		cut := false
		for _, sent := range sents {
			if isReferenceHeading(sent) {
				cut = true
				break
			}
			kept = append(kept, sent)
		}
		out = append(out, strings.Join(kept, " "))
		if cut {
			break
		}
	}
	return out
}
