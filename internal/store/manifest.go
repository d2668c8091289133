package store

import (
	"path/filepath"

	"github.com/soberm258/tiny-agents/internal/chunk"
)

// WriteManifest writes the chunk manifest (split_sentence.jsonl) listing
// every passage of the database in insertion order. The manifest exists for
// debugging and rebuilds; queries never read it.
func WriteManifest(baseDir string, passages []*chunk.Passage) error {
	return WritePassagesJSONL(filepath.Join(baseDir, ManifestName), passages)
}

// ReadManifest reloads the chunk manifest in file order.
func ReadManifest(baseDir string) ([]*chunk.Passage, error) {
	return ReadPassagesJSONL(filepath.Join(baseDir, ManifestName))
}
