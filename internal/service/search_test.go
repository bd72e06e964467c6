package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-labs/recollect/internal/domain"
)

// fakeModel routes optimizer and answer calls through one configurable hook
type fakeModel struct {
	complete func(messages []domain.Message) (string, error)
	prompts  [][]domain.Message
}

func (f *fakeModel) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	f.prompts = append(f.prompts, messages)
	return f.complete(messages)
}

func isOptimizerPrompt(messages []domain.Message) bool {
	return len(messages) > 0 && messages[0].Content == optimizerInstruction
}

func newAnsweringModel(optimized, answer string) *fakeModel {
	return &fakeModel{
		complete: func(messages []domain.Message) (string, error) {
			if isOptimizerPrompt(messages) {
				return optimized, nil
			}
			return answer, nil
		},
	}
}

// queryRecordingIndex wraps fakeIndex and remembers the last filter used
type queryRecordingIndex struct {
	fakeIndex
	lastFilter VectorFilter
	lastTopK   int
}

func (q *queryRecordingIndex) Query(ctx context.Context, embedding []float32, filter VectorFilter, topK int) ([]domain.SearchMatch, error) {
	q.lastFilter = filter
	q.lastTopK = topK
	return q.fakeIndex.Query(ctx, embedding, filter, topK)
}

func matchWithScore(id string, score float32, excerpt string) domain.SearchMatch {
	return domain.SearchMatch{
		ID:      id,
		Score:   score,
		Excerpt: excerpt,
		Metadata: domain.ChunkMetadata{
			DocID:  strings.SplitN(id, "_chunk_", 2)[0],
			UserID: "u1",
			Type:   domain.ContentTypeYoutube,
		},
	}
}

func TestSearchAI_FullPipeline(t *testing.T) {
	index := &queryRecordingIndex{}
	index.matches = []domain.SearchMatch{
		matchWithScore("d1_chunk_0", 0.92, "Solana uses Proof of History."),
		matchWithScore("d2_chunk_0", 0.81, "Proof of Stake secures many chains."),
	}
	model := newAnsweringModel("What consensus mechanism does Solana use?", "Solana uses Proof of History.")
	svc := NewSearchService(newFakeEmbedder(), index, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{
		UserID: "u1",
		Query:  "solana consensus?",
		Filter: "all",
	})

	require.NoError(t, err)
	assert.Equal(t, "Solana uses Proof of History.", out.Answer)
	assert.Equal(t, "What consensus mechanism does Solana use?", out.OptimizedQuery)
	assert.Len(t, out.Sources, 2)
	assert.Equal(t, DefaultTopK, index.lastTopK)

	// Final prompt: system instruction then one user turn with context and
	// the optimized query
	require.Len(t, out.PromptMessages, 2)
	assert.Equal(t, domain.RoleSystem, out.PromptMessages[0].Role)
	final := out.PromptMessages[1]
	assert.Equal(t, domain.RoleUser, final.Role)
	assert.Contains(t, final.Content, "CONTEXT:")
	assert.Contains(t, final.Content, "Solana uses Proof of History.")
	assert.Contains(t, final.Content, contextSeparator)
	assert.Contains(t, final.Content, "What consensus mechanism does Solana use?")
}

func TestSearchAI_MissingQuery(t *testing.T) {
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, newAnsweringModel("", ""))

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "   "})

	assert.Equal(t, domain.ErrMissingQuery, err)
}

func TestSearchAI_InvalidFilter(t *testing.T) {
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, newAnsweringModel("", ""))

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q", Filter: "podcast"})

	assert.Equal(t, domain.ErrInvalidSearchFilter, err)
}

func TestSearchAI_EmptyFilterDefaultsToAll(t *testing.T) {
	index := &queryRecordingIndex{}
	svc := NewSearchService(newFakeEmbedder(), index, newAnsweringModel("q2", "a"))

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, "u1", index.lastFilter.UserID)
	assert.Empty(t, index.lastFilter.Type)
}

func TestSearchAI_TypeFilterApplied(t *testing.T) {
	index := &queryRecordingIndex{}
	svc := NewSearchService(newFakeEmbedder(), index, newAnsweringModel("q2", "a"))

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q", Filter: "youtube"})

	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeYoutube, index.lastFilter.Type)
}

func TestSearchAI_EmbeddingFailureIsFatal(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.failOn["q"] = true
	svc := NewSearchService(embedder, &fakeIndex{}, newAnsweringModel("", ""))

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q"})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbedding, domainErr.Code)
}

func TestSearchAI_IndexFailureIsFatal(t *testing.T) {
	index := &fakeIndex{queryErr: errors.New("index down")}
	svc := NewSearchService(newFakeEmbedder(), index, newAnsweringModel("", ""))

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q"})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeIndex, domainErr.Code)
}

func TestSearchAI_OptimizerFailureFallsBackToRawQuery(t *testing.T) {
	model := &fakeModel{
		complete: func(messages []domain.Message) (string, error) {
			if isOptimizerPrompt(messages) {
				return "", errors.New("model overloaded")
			}
			return "the answer", nil
		},
	}
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "raw question"})

	require.NoError(t, err)
	assert.Equal(t, "raw question", out.OptimizedQuery)
	assert.Equal(t, "the answer", out.Answer)
}

func TestSearchAI_OptimizerEmptyResponseFallsBack(t *testing.T) {
	model := newAnsweringModel("  ", "the answer")
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "raw question"})

	require.NoError(t, err)
	assert.Equal(t, "raw question", out.OptimizedQuery)
}

func TestSearchAI_AnswerFailureIsFatal(t *testing.T) {
	model := &fakeModel{
		complete: func(messages []domain.Message) (string, error) {
			if isOptimizerPrompt(messages) {
				return "better query", nil
			}
			return "", errors.New("model overloaded")
		},
	}
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, model)

	_, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q"})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeGeneration, domainErr.Code)
}

func TestSearchAI_EmptyAnswerUsesFallback(t *testing.T) {
	model := newAnsweringModel("q2", "   ")
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, answerFallback, out.Answer)
}

func TestSearchAI_EmptyIndexIsSafe(t *testing.T) {
	var sawContext string
	model := &fakeModel{
		complete: func(messages []domain.Message) (string, error) {
			if isOptimizerPrompt(messages) {
				return "q2", nil
			}
			sawContext = messages[len(messages)-1].Content
			return "I don't know based on the given information.", nil
		},
	}
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "anything"})

	require.NoError(t, err)
	assert.Contains(t, out.Answer, "I don't know")
	assert.Empty(t, out.Sources)
	assert.NotNil(t, out.Sources)
	assert.Contains(t, sawContext, emptyContext)
}

func TestSearchAI_BelowThresholdExcludedFromContextNotSources(t *testing.T) {
	index := &fakeIndex{matches: []domain.SearchMatch{
		matchWithScore("d1_chunk_0", 0.9, "relevant excerpt"),
		matchWithScore("d2_chunk_0", 0.4, "barely related excerpt"),
	}}
	var sawContext string
	model := &fakeModel{
		complete: func(messages []domain.Message) (string, error) {
			if isOptimizerPrompt(messages) {
				return "q2", nil
			}
			sawContext = messages[len(messages)-1].Content
			return "answer", nil
		},
	}
	svc := NewSearchService(newFakeEmbedder(), index, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{UserID: "u1", Query: "q"})

	require.NoError(t, err)
	assert.Len(t, out.Sources, 2)
	assert.Contains(t, sawContext, "relevant excerpt")
	assert.NotContains(t, sawContext, "barely related excerpt")
}

func TestSearchAI_HistoryIncludedInPrompt(t *testing.T) {
	model := newAnsweringModel("q2", "a")
	svc := NewSearchService(newFakeEmbedder(), &fakeIndex{}, model)

	out, err := svc.SearchAI(context.Background(), SearchInput{
		UserID: "u1",
		Query:  "follow-up",
		History: []domain.HistoryMessage{
			{Role: "user", Parts: []domain.HistoryPart{{Text: "first question"}}},
			{Role: "model", Parts: []domain.HistoryPart{{Text: "first answer"}}},
		},
	})

	require.NoError(t, err)
	require.Len(t, out.PromptMessages, 4)
	assert.Equal(t, domain.RoleSystem, out.PromptMessages[0].Role)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "first question"}, out.PromptMessages[1])
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "first answer"}, out.PromptMessages[2])
	assert.Equal(t, domain.RoleUser, out.PromptMessages[3].Role)
}
