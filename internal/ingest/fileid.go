package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const fileIDPrefix = "file:"

// FileID returns a stable registry id for the given absolute path.
// Same path always yields the same id.
func FileID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return fileIDPrefix + hex.EncodeToString(hash[:])
}
