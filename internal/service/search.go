package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/telemetry"
)

const (
	// DefaultTopK is the number of nearest neighbors retrieved per query
	DefaultTopK = 5
	// DefaultMinScore is the similarity threshold below which a match is
	// excluded from the answer context (it still appears in sources)
	DefaultMinScore = 0.75

	contextSeparator = "\n\n---\n\n"
	emptyContext     = "No relevant results found."
	answerFallback   = "Sorry, I couldn't generate an answer."

	answerInstruction = "You are a helpful assistant. Use the provided CONTEXT to answer the QUESTION. " +
		"If the answer cannot be found in the context, say 'I don't know based on the given information.'"

	optimizerInstruction = "You are a search query optimizer. Rewrite the user's question into a single, " +
		"clearer query that incorporates relevant details from the provided CONTEXT. " +
		"Respond with the rewritten query only."
)

// GenerativeClient defines the interface for chat completions
type GenerativeClient interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// SearchConfig tunes retrieval behavior.
type SearchConfig struct {
	TopK     int
	MinScore float32
}

// DefaultSearchConfig provides sane retrieval defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TopK:     DefaultTopK,
		MinScore: DefaultMinScore,
	}
}

// SearchService answers conversational questions over a user's indexed
// content: embed the query, retrieve nearest chunks, rewrite the query with
// that context, then generate a grounded answer.
type SearchService struct {
	embedder EmbeddingClient
	index    VectorIndex
	model    GenerativeClient
	cfg      SearchConfig
}

// NewSearchService creates a new SearchService instance
func NewSearchService(embedder EmbeddingClient, index VectorIndex, model GenerativeClient) *SearchService {
	return NewSearchServiceWithConfig(embedder, index, model, DefaultSearchConfig())
}

// NewSearchServiceWithConfig creates a new SearchService with explicit retrieval configuration
func NewSearchServiceWithConfig(embedder EmbeddingClient, index VectorIndex, model GenerativeClient, cfg SearchConfig) *SearchService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &SearchService{
		embedder: embedder,
		index:    index,
		model:    model,
		cfg:      cfg,
	}
}

// SearchInput is one conversational search request. History is supplied by
// the caller on every request; the server keeps no conversation state.
type SearchInput struct {
	UserID  string
	Query   string
	Filter  string
	History []domain.HistoryMessage
}

// SearchOutput is the structured result of one conversational search
type SearchOutput struct {
	Answer         string
	OptimizedQuery string
	Sources        []domain.SearchMatch
	PromptMessages []domain.Message
}

// SearchAI runs the full retrieval-augmented pipeline for one request.
// Embedding and retrieval failures are fatal; an optimizer failure degrades
// to the raw query; an empty answer falls back to a fixed message.
func (s *SearchService) SearchAI(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.SearchAI", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "search",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrMissingQuery
	}

	filter := input.Filter
	if filter == "" {
		filter = domain.FilterAll
	}
	if !domain.IsValidSearchFilter(filter) {
		return nil, domain.ErrInvalidSearchFilter
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to embed query", err)
	}

	vectorFilter := VectorFilter{UserID: input.UserID}
	if filter != domain.FilterAll {
		vectorFilter.Type = domain.ContentType(filter)
	}

	matches, err := s.index.Query(ctx, embedding, vectorFilter, s.cfg.TopK)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndex, "vector query failed", err)
	}

	contextText := s.buildContext(matches)

	optimized := s.optimizeQuery(ctx, query, contextText)

	turns := domain.FlattenHistory(input.History)
	messages := make([]domain.Message, 0, len(turns)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: answerInstruction})
	for _, turn := range turns {
		messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, domain.Message{
		Role:    domain.RoleUser,
		Content: fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s", contextText, optimized),
	})

	answer, err := s.model.Complete(ctx, messages)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "failed to generate answer", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = answerFallback
	}

	if matches == nil {
		matches = []domain.SearchMatch{}
	}

	return &SearchOutput{
		Answer:         answer,
		OptimizedQuery: optimized,
		Sources:        matches,
		PromptMessages: messages,
	}, nil
}

// buildContext joins the excerpts of matches above the similarity threshold.
// With no qualifying match the context is a fixed sentence the answer model
// is instructed to handle.
func (s *SearchService) buildContext(matches []domain.SearchMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Score < s.cfg.MinScore {
			continue
		}
		if m.Excerpt == "" {
			continue
		}
		parts = append(parts, m.Excerpt)
	}

	if len(parts) == 0 {
		return emptyContext
	}
	return strings.Join(parts, contextSeparator)
}

// optimizeQuery rewrites the raw query using the retrieved context. This
// step must never fail the search: any error or empty response falls back
// to the raw query unchanged.
func (s *SearchService) optimizeQuery(ctx context.Context, query, contextText string) string {
	rewritten, err := s.model.Complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: optimizerInstruction},
		{Role: domain.RoleUser, Content: fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s", contextText, query)},
	})
	if err != nil {
		log.Printf("search: query optimization failed, using raw query: %v", err)
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}
	return rewritten
}
