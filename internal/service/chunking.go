package service

import (
	"fmt"
	"strings"
)

// ChunkConfig controls how ingested text is split into embedding windows.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides the validated defaults for chunking.
// The 25% overlap keeps semantic continuity across chunk boundaries.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    800,
		Overlap: 200,
	}
}

// ChunkText splits text into fixed-size overlapping windows. Each chunk after
// the first starts Size-Overlap characters after the previous chunk's start,
// and the final chunk ends exactly at the end of the text. Empty or
// whitespace-only input yields no chunks.
func ChunkText(text string, cfg ChunkConfig) ([]string, error) {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative: %d", cfg.Overlap)
	}
	if cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", cfg.Overlap, cfg.Size)
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	stride := cfg.Size - cfg.Overlap

	chunks := make([]string, 0, (len(runes)/stride)+1)
	for start := 0; start < len(runes); start += stride {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
