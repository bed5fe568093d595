package ingest

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

// Unit is one loadable document unit prior to chunking: a PDF page or a
// Slack conversation thread.
type Unit struct {
	// Text is the raw text content of the unit.
	Text string

	// Source identifies the origin (PDF filename, export filename, or
	// Slack channel name).
	Source string

	// Page is the 1-based page number for paginated sources, 0 otherwise.
	Page int

	// Atomic units (Slack threads) bypass the chunker so a question stays
	// together with its answer.
	Atomic bool

	// Metadata holds extra key-value pairs carried into the stored chunks.
	Metadata map[string]string
}

// chunkID derives a deterministic UUID for a chunk from its source, page,
// and the chunk's ordinal within that (source, page) stream. Re-ingesting
// the same corpus overwrites rather than duplicates. The first 16 bytes of
// the SHA-256 digest are rendered in UUID form because Qdrant point IDs must
// be UUIDs or integers.
func chunkID(source string, page, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d#%d", source, page, index)))
	return uuid.UUID(h[:16]).String()
}
