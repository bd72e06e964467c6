package domain

import "fmt"

// MaxExcerptChars bounds the stored chunk excerpt for display and context assembly
const MaxExcerptChars = 1000

// ChunkMetadata is the metadata bag copied from the parent content item at
// ingestion time and returned verbatim with search matches.
type ChunkMetadata struct {
	DocID      string      `json:"docId"`
	ChunkIndex int         `json:"chunkIndex"`
	UserID     string      `json:"userId"`
	Title      string      `json:"title"`
	Type       ContentType `json:"type"`
	Link       string      `json:"link,omitempty"`
}

// Chunk is the derived, embedded segment of a content item stored in the
// vector index. Never created directly by a user; replaced wholesale on
// re-ingestion and deleted in bulk with the parent.
type Chunk struct {
	ID        string
	Excerpt   string
	Embedding []float32
	Metadata  ChunkMetadata
}

// ChunkID derives the deterministic vector id for a document chunk.
// Re-ingesting the same document overwrites rather than duplicates.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// TruncateExcerpt bounds chunk text to the stored excerpt length. The limit
// counts runes, never splitting a multi-byte character at the boundary.
func TruncateExcerpt(text string) string {
	if len(text) <= MaxExcerptChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxExcerptChars {
		return text
	}
	return string(runes[:MaxExcerptChars])
}

// SearchMatch is one ranked hit from a vector index query. Ephemeral:
// produced per query, never stored.
type SearchMatch struct {
	ID       string        `json:"id"`
	Score    float32       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
	Excerpt  string        `json:"text,omitempty"`
}
