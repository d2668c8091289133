// Package ingest reads heterogeneous source documents (PDF, plain text,
// Markdown, office documents, JSON records) into pre-chunk documents with
// stable ids and source metadata.
package ingest

import (
	"bytes"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTextFile reads a text file tolerating the encodings the corpus
// actually contains: UTF-8, UTF-8 with BOM, and GB18030/GBK.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil {
		// Neither UTF-8 nor GB18030: keep the valid UTF-8 runs.
		return string(bytes.ToValidUTF8(data, []byte("�"))), nil
	}
	return string(decoded), nil
}
