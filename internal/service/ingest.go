package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorFilter restricts a vector query to an owner and optionally one
// content type. An empty Type matches every type.
type VectorFilter struct {
	UserID string
	Type   domain.ContentType
}

// VectorIndex defines the interface for the chunk similarity store
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Query(ctx context.Context, embedding []float32, filter VectorFilter, topK int) ([]domain.SearchMatch, error)
	DeleteByDocID(ctx context.Context, docID string) error
}

// ContentExtractor pulls plain text out of a source link. Extraction is
// best-effort: implementations return an empty string rather than an error
// when nothing can be extracted.
type ContentExtractor interface {
	Extract(ctx context.Context, contentType domain.ContentType, link string) string
}

// IngestService turns one content item into embedded chunks in the vector
// index. It is the only writer into the index for a given document id
// outside of full re-population tooling.
type IngestService struct {
	embedder EmbeddingClient
	index    VectorIndex
	chunkCfg ChunkConfig
}

// NewIngestService creates a new IngestService instance
func NewIngestService(embedder EmbeddingClient, index VectorIndex) *IngestService {
	return NewIngestServiceWithConfig(embedder, index, DefaultChunkConfig())
}

// NewIngestServiceWithConfig creates a new IngestService with explicit chunking configuration
func NewIngestServiceWithConfig(embedder EmbeddingClient, index VectorIndex, chunkCfg ChunkConfig) *IngestService {
	return &IngestService{
		embedder: embedder,
		index:    index,
		chunkCfg: chunkCfg,
	}
}

// chunkEmbedResult captures the per-chunk outcome of the embedding fan-out,
// so failed and malformed chunks can be dropped without aborting the rest.
type chunkEmbedResult struct {
	index     int
	text      string
	embedding []float32
	err       error
}

// Ingest chunks, embeds, and upserts the searchable representation of one
// content item. Returns the number of chunks written. A whitespace-only
// document is skipped without error; a chunk whose embedding fails is
// dropped and logged; zero valid chunks is a warned no-op, never an empty
// batch upsert.
func (s *IngestService) Ingest(ctx context.Context, content *domain.Content, extracted string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		UserID:    content.UserID,
		ContentID: content.ID,
		Operation: "ingest",
	})
	defer span.End()

	text := content.EmbeddingText(extracted)
	if strings.TrimSpace(text) == "" {
		log.Printf("ingest: content %s has no text to index, skipping", content.ID)
		return 0, nil
	}

	chunks, err := ChunkText(text, s.chunkCfg)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	results := s.embedChunks(ctx, chunks)

	valid := make([]domain.Chunk, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			log.Printf("ingest: dropping chunk %d of content %s: %v", r.index, content.ID, r.err)
			continue
		}
		if !isFiniteVector(r.embedding) {
			log.Printf("ingest: dropping chunk %d of content %s: embedding contains non-finite values", r.index, content.ID)
			continue
		}

		valid = append(valid, domain.Chunk{
			ID:        domain.ChunkID(content.ID, r.index),
			Excerpt:   domain.TruncateExcerpt(r.text),
			Embedding: r.embedding,
			Metadata: domain.ChunkMetadata{
				DocID:      content.ID,
				ChunkIndex: r.index,
				UserID:     content.UserID,
				Title:      content.Title,
				Type:       content.Type,
				Link:       content.Link,
			},
		})
	}

	// A document without a searchable embedding is tolerated; never upsert
	// an empty batch.
	if len(valid) == 0 {
		log.Printf("ingest: no valid chunks for content %s, nothing to upsert", content.ID)
		return 0, nil
	}

	// Clear stale chunks from any previous, possibly longer, version of
	// this document before writing the fresh batch.
	if err := s.index.DeleteByDocID(ctx, content.ID); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	if err := s.index.Upsert(ctx, valid); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	return len(valid), nil
}

// Remove deletes every indexed chunk belonging to a document
func (s *IngestService) Remove(ctx context.Context, contentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Remove", telemetry.SpanAttributes{
		ContentID: contentID,
		Operation: "delete",
	})
	defer span.End()

	if err := s.index.DeleteByDocID(ctx, contentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// embedChunks fans out one embedding call per chunk. Results preserve the
// original chunk index ordering regardless of completion order.
func (s *IngestService) embedChunks(ctx context.Context, chunks []string) []chunkEmbedResult {
	results := make([]chunkEmbedResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			embedding, err := s.embedder.GenerateEmbedding(ctx, text)
			results[i] = chunkEmbedResult{
				index:     i,
				text:      text,
				embedding: embedding,
				err:       err,
			}
		}(i, chunk)
	}
	wg.Wait()

	return results
}

func isFiniteVector(vec []float32) bool {
	if len(vec) == 0 {
		return false
	}
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
