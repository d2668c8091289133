package ingest

import (
	"strings"
)

// CaseSectionNames are the judicial-case section headings, in report order.
var CaseSectionNames = []string{"基本案情", "裁判理由", "裁判要旨"}

// CaseSections holds the extracted sections of one judicial-case PDF.
type CaseSections struct {
	Title    string
	Sections map[string]string
	// PageRange maps a section name to its [start, end] page numbers.
	PageRange map[string][2]int
}

// Found reports whether any case section heading was detected.
func (c *CaseSections) Found() bool {
	return c != nil && len(c.Sections) > 0
}

// SectionNames returns the detected section names in report order.
func (c *CaseSections) SectionNames() []string {
	var out []string
	for _, name := range CaseSectionNames {
		if _, ok := c.Sections[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// ReadCasePDFSections extracts 基本案情/裁判理由/裁判要旨 sections from a
// judicial-case PDF. The case title is the first non-empty line; a section
// heading is a line that begins with (optionally bracketed) section name.
func ReadCasePDFSections(path string) (*CaseSections, error) {
	pages, err := ReadPDFPages(path)
	if err != nil {
		return nil, err
	}
	return ExtractCaseSections(pages), nil
}

// ExtractCaseSections scans page texts for case section headings.
// Exposed separately so tests can feed synthetic pages.
func ExtractCaseSections(pages []string) *CaseSections {
	out := &CaseSections{
		Sections:  map[string]string{},
		PageRange: map[string][2]int{},
	}

	current := ""
	var buf strings.Builder

	flush := func(endPage int) {
		if current == "" {
			return
		}
		body := strings.TrimSpace(buf.String())
		if body != "" {
			out.Sections[current] = body
			pr := out.PageRange[current]
			pr[1] = endPage
			out.PageRange[current] = pr
		}
		buf.Reset()
		current = ""
	}

	for pageIdx, page := range pages {
		pageNo := pageIdx + 1
		for _, rawLine := range strings.Split(page, "\n") {
			line := strings.TrimSpace(rawLine)
			if line == "" {
				continue
			}
			if out.Title == "" {
				out.Title = line
				continue
			}
			if name := matchSectionHeading(line); name != "" {
				flush(pageNo)
				current = name
				out.PageRange[name] = [2]int{pageNo, pageNo}
				// Keep any body text following the heading on the same line.
				if rest := strings.TrimSpace(headingRest(line, name)); rest != "" {
					buf.WriteString(rest)
					buf.WriteByte('\n')
				}
				continue
			}
			if current != "" {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
		}
	}
	flush(len(pages))
	return out
}

// matchSectionHeading returns the section name a line introduces, or "".
func matchSectionHeading(line string) string {
	stripped := strings.TrimLeft(line, "【[ 　")
	for _, name := range CaseSectionNames {
		if strings.HasPrefix(stripped, name) {
			return name
		}
	}
	return ""
}

// headingRest strips the heading (and its brackets) from a heading line.
func headingRest(line, name string) string {
	stripped := strings.TrimLeft(line, "【[ 　")
	rest := strings.TrimPrefix(stripped, name)
	return strings.TrimLeft(rest, "】] 　:：")
}
