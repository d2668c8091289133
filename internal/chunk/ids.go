package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MakeDocID derives a deterministic document id from immutable inputs.
// Identical (source_path, page, record_index) always yield the same id, so
// rebuilds over unchanged input produce identical ids.
func MakeDocID(sourcePath string, page, recordIndex int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", sourcePath, page, recordIndex))
	return hex.EncodeToString(sum[:8])
}

// MakeChunkID derives the passage id from its document id and chunk index.
func MakeChunkID(docID string, chunkIndex int) string {
	return fmt.Sprintf("%s-%d", docID, chunkIndex)
}
