package testutil

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// BLAKE3Hex returns the BLAKE3 checksum of data as a lowercase hex string.
// Matches the checksum format recorded by the ingestion pipeline.
func BLAKE3Hex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
