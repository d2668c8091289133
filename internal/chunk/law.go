package chunk

import (
	"regexp"
	"strings"
)

// lawEnumRe matches enumeration items such as （一）, (2), （十三）.
var lawEnumRe = regexp.MustCompile(`^\s*[（(][一二三四五六七八九十百千0-9]+[)）]`)

// lawMergeMinChars is the target size of a merged statute chunk: introducer
// plus enumeration items keep accumulating until this length is reached.
const lawMergeMinChars = 120

// IsLawDoc reports whether meta marks a legal document.
func IsLawDoc(meta Meta) bool {
	return meta.Has(MetaLaw) || meta.Has(MetaArticle) || meta.Has(MetaBook) || meta.Has(MetaChapter)
}

// IsEnumItem reports whether a stripped sentence begins with an
// enumeration marker like （一） or (2).
func IsEnumItem(sent string) bool {
	return lawEnumRe.MatchString(sent)
}

// LawIndexPrefix builds the structural anchor prepended to a law passage's
// index text, e.g. 《中华人民共和国民法典》 （简称：民法典） 第三编 第二章 第一节 第四百六十四条.
// Users commonly type 刑法/宪法/民法典 without 中华人民共和国, so the short
// alias is injected alongside the full title.
func LawIndexPrefix(meta Meta) string {
	law := strings.TrimSpace(meta.GetString(MetaLaw))
	book := strings.TrimSpace(meta.GetString(MetaBook))
	chapter := strings.TrimSpace(meta.GetString(MetaChapter))
	section := strings.TrimSpace(meta.GetString(MetaSection))
	if section == "" {
		section = "未分节"
	}
	article := strings.TrimSpace(meta.GetString(MetaArticle))

	const prefix = "中华人民共和国"
	alias := ""
	if strings.HasPrefix(law, prefix) && len(law) > len(prefix) {
		alias = strings.TrimSpace(strings.TrimPrefix(law, prefix))
	}

	var parts []string
	if law != "" {
		parts = append(parts, "《"+law+"》")
	}
	if alias != "" && alias != law {
		parts = append(parts, "（简称："+alias+"）")
	}
	for _, p := range []string{book, chapter, section, article} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// MergeLawSentences merges statute sentences so enumeration items never
// stand alone:
//   - an introducer ending in ： or : stays with the items that follow it;
//   - the buffer grows until it reaches lawMergeMinChars and the next
//     sentence would push it past maxChars, then flushes.
//
// Merged chunks join sentences with newlines.
func MergeLawSentences(sents []string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultSentenceSize
	}

	var out []string
	var buf []string

	bufLen := func() int {
		n := 0
		for _, s := range buf {
			n += len([]rune(s))
		}
		if len(buf) > 1 {
			n += len(buf) - 1
		}
		return n
	}

	flush := func() {
		if len(buf) == 0 {
			return
		}
		var kept []string
		for _, s := range buf {
			if t := strings.TrimSpace(s); t != "" {
				kept = append(kept, t)
			}
		}
		if text := strings.TrimSpace(strings.Join(kept, "\n")); text != "" {
			out = append(out, text)
		}
		buf = buf[:0]
	}

	for _, raw := range sents {
		sent := strings.TrimSpace(raw)
		if sent == "" {
			continue
		}

		cur := bufLen()
		if len(buf) > 0 && cur >= lawMergeMinChars && cur+1+len([]rune(sent)) > maxChars {
			flush()
		}

		buf = append(buf, sent)

		// An introducer waits for at least one enumeration item.
		if strings.HasSuffix(sent, "：") || strings.HasSuffix(sent, ":") {
			continue
		}

		if bufLen() >= maxChars {
			flush()
		}
	}

	flush()
	return out
}
