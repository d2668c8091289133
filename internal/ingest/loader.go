package ingest

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/soberm258/tiny-agents/internal/chunk"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

// Options configures document loading.
type Options struct {
	// JSONTextKey is the object key holding record text in JSON/JSONL files.
	JSONTextKey string
	// Recursive walks directories recursively.
	Recursive bool
	// SuffixAllowlist restricts the extensions loaded from a directory.
	// Empty means all supported extensions.
	SuffixAllowlist []string
	// SentenceSize feeds the PDF page cleaner's sentence splitter.
	SentenceSize int
}

// LoadDocsForBuild reads a file or directory into pre-chunk documents.
// PDFs yield one document per page (or per case section in case mode);
// JSON/JSONL yield one per record; other types one per file. Unsupported
// extensions are skipped with a warning; unreadable files abort the build.
func LoadDocsForBuild(inputPath string, opts Options) ([]*chunk.Document, error) {
	if opts.JSONTextKey == "" {
		opts.JSONTextKey = "completion"
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeFileUnreadable, "输入路径不存在："+inputPath, err)
	}

	var files []string
	if info.IsDir() {
		files, err = collectFiles(inputPath, opts)
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{inputPath}
	}

	var docs []*chunk.Document
	for _, path := range files {
		fileDocs, err := loadFile(path, opts)
		if err != nil {
			slog.Error("ingest_failed", slog.String("path", path), slog.String("error", err.Error()))
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func collectFiles(dir string, opts Options) ([]string, error) {
	allow := map[string]struct{}{}
	for _, s := range opts.SuffixAllowlist {
		allow[strings.ToLower(strings.TrimPrefix(s, "."))] = struct{}{}
	}

	var files []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if len(allow) > 0 {
			suffix := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if _, ok := allow[suffix]; !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	sort.Strings(files)
	return files, nil
}

func loadFile(path string, opts Options) ([]*chunk.Document, error) {
	suffix := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch suffix {
	case "pdf":
		return loadPDF(path, opts)
	case "txt":
		return loadWholeFile(path, "txt", ReadTextFile)
	case "md":
		return loadWholeFile(path, "md", func(p string) (string, error) {
			raw, err := ReadTextFile(p)
			if err != nil {
				return "", err
			}
			return MarkdownToText(raw), nil
		})
	case "docx":
		return loadWholeFile(path, "docx", ReadDocxText)
	case "pptx":
		return loadWholeFile(path, "pptx", ReadPptxText)
	case "json":
		return loadRecords(path, "json", opts, ReadJSONTexts)
	case "jsonl":
		return loadRecords(path, "jsonl", opts, ReadJSONLTexts)
	default:
		slog.Warn("unsupported_file_skipped", slog.String("path", path))
		return nil, nil
	}
}

// loadPDF emits per-section documents for judicial-case PDFs and cleaned
// per-page documents otherwise.
func loadPDF(path string, opts Options) ([]*chunk.Document, error) {
	pages, err := ReadPDFPages(path)
	if err != nil {
		return nil, err
	}

	if cs := ExtractCaseSections(pages); cs.Found() {
		return caseDocs(path, cs), nil
	}

	cleaned := CleanPDFPages(pages, opts.SentenceSize)
	docs := make([]*chunk.Document, 0, len(cleaned))
	for i, text := range cleaned {
		page := i + 1
		docID := chunk.MakeDocID(path, page, 0)
		docs = append(docs, &chunk.Document{
			ID:   docID,
			Text: text,
			Meta: chunk.Meta{
				chunk.MetaSourcePath: path,
				chunk.MetaPage:       page,
				chunk.MetaType:       "pdf",
				chunk.MetaDocID:      docID,
			},
		})
	}
	return docs, nil
}

func caseDocs(path string, cs *CaseSections) []*chunk.Document {
	names := cs.SectionNames()
	var docs []*chunk.Document
	for i, name := range names {
		body := cs.Sections[name]
		pr := cs.PageRange[name]
		docID := chunk.MakeDocID(path, pr[0], i)
		docs = append(docs, &chunk.Document{
			ID:   docID,
			Text: body,
			Meta: chunk.Meta{
				chunk.MetaSourcePath:   path,
				chunk.MetaType:         "pdf",
				chunk.MetaPDFMode:      chunk.PDFModeCase,
				chunk.MetaCaseTitle:    cs.Title,
				chunk.MetaCaseSections: names,
				chunk.MetaPageStart:    pr[0],
				chunk.MetaPageEnd:      pr[1],
				chunk.MetaDocID:        docID,
			},
		})
	}
	return docs
}

func loadWholeFile(path, typ string, read func(string) (string, error)) ([]*chunk.Document, error) {
	text, err := read(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	docID := chunk.MakeDocID(path, 0, 0)
	return []*chunk.Document{{
		ID:   docID,
		Text: text,
		Meta: chunk.Meta{
			chunk.MetaSourcePath: path,
			chunk.MetaType:       typ,
			chunk.MetaDocID:      docID,
		},
	}}, nil
}

func loadRecords(path, typ string, opts Options, read func(string, string) ([]string, error)) ([]*chunk.Document, error) {
	texts, err := read(path, opts.JSONTextKey)
	if err != nil {
		return nil, err
	}
	docs := make([]*chunk.Document, 0, len(texts))
	for idx, text := range texts {
		docID := chunk.MakeDocID(path, 0, idx)
		docs = append(docs, &chunk.Document{
			ID:   docID,
			Text: text,
			Meta: chunk.Meta{
				chunk.MetaSourcePath:  path,
				chunk.MetaType:        typ,
				chunk.MetaRecordIndex: idx,
				chunk.MetaTextKey:     opts.JSONTextKey,
				chunk.MetaDocID:       docID,
			},
		})
	}
	return docs, nil
}
