package ingest

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

// docx and pptx are both OOXML packages: a zip archive with the visible
// text living in <w:t> (word/document.xml) and <a:t> (ppt/slides/slideN.xml)
// elements. Only paragraph and shape text is extracted.

// ReadDocxText extracts the paragraph text of a .docx file.
// Paragraph boundaries (<w:p>) become newlines.
func ReadDocxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", ragerr.IngestError("docx 解析失败："+path, err)
		}
		defer rc.Close()
		return extractOOXMLText(rc, "t", "p")
	}
	return "", ragerr.IngestError("docx 缺少 word/document.xml："+path, nil)
}

var slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ReadPptxText extracts shape text from all slides of a .pptx file,
// in slide order. Text runs (<a:t>) within one paragraph concatenate;
// paragraph ends (</a:p>) and slide boundaries become newlines.
func ReadPptxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	defer zr.Close()

	type slide struct {
		no   int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideRe.FindStringSubmatch(f.Name); m != nil {
			no, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{no: no, file: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].no < slides[j].no })

	var parts []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", ragerr.IngestError("pptx 解析失败："+path, err)
		}
		text, err := extractOOXMLText(rc, "t", "p")
		rc.Close()
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// extractOOXMLText streams an OOXML part, collecting the character data of
// every <textLocal> element and inserting a newline at each </paraLocal>.
func extractOOXMLText(r io.Reader, textLocal, paraLocal string) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", ragerr.IngestError("OOXML 解析失败", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textLocal {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textLocal:
				inText = false
			case paraLocal:
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
