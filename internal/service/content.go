package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/pagination"
	"github.com/recollect-labs/recollect/internal/telemetry"
)

// ContentRepositoryInterface defines the repository interface for content persistence
type ContentRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Content) error
	GetByID(ctx context.Context, id string) (*domain.Content, error)
	GetByShareToken(ctx context.Context, token string) (*domain.Content, error)
	ListByUserWithCursor(ctx context.Context, userID string, contentType domain.ContentType, cursor *pagination.Cursor, limit int) (*ContentPageResult, error)
	Update(ctx context.Context, c *domain.Content) error
	Delete(ctx context.Context, id string) error
	ReplaceTags(ctx context.Context, contentID string, titles []string) ([]domain.Tag, error)
	SetShareToken(ctx context.Context, id, token string) error
}

type ContentPageResult struct {
	Items      []*domain.Content
	NextCursor string
	HasMore    bool
}

// IngestJobRepositoryInterface defines the repository interface for ingest job persistence
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// ChunkRemover deletes the indexed chunks of a document
type ChunkRemover interface {
	Remove(ctx context.Context, contentID string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ContentService handles business logic for saved content items. Every
// create and edit queues an ingest job so the vector index eventually
// reflects the latest text; the content record itself never waits on
// ingestion.
type ContentService struct {
	contentRepo   ContentRepositoryInterface
	ingestJobRepo IngestJobRepositoryInterface
	chunkRemover  ChunkRemover
	uuidGen       UUIDGenerator
	txRunner      TxRunner
}

// NewContentService creates a new ContentService instance
func NewContentService(contentRepo ContentRepositoryInterface, ingestJobRepo IngestJobRepositoryInterface, chunkRemover ChunkRemover) *ContentService {
	return &ContentService{
		contentRepo:   contentRepo,
		ingestJobRepo: ingestJobRepo,
		chunkRemover:  chunkRemover,
		uuidGen:       &DefaultUUIDGenerator{},
	}
}

// NewContentServiceWithTx creates a ContentService that writes the content
// record and its ingest job in one transaction.
func NewContentServiceWithTx(contentRepo ContentRepositoryInterface, ingestJobRepo IngestJobRepositoryInterface, chunkRemover ChunkRemover, txRunner TxRunner) *ContentService {
	svc := NewContentService(contentRepo, ingestJobRepo, chunkRemover)
	svc.txRunner = txRunner
	return svc
}

// NewContentServiceWithUUIDGen creates a new ContentService with custom UUID generator (for testing)
func NewContentServiceWithUUIDGen(contentRepo ContentRepositoryInterface, ingestJobRepo IngestJobRepositoryInterface, chunkRemover ChunkRemover, uuidGen UUIDGenerator) *ContentService {
	svc := NewContentService(contentRepo, ingestJobRepo, chunkRemover)
	svc.uuidGen = uuidGen
	return svc
}

// CreateContentInput represents the input for saving a content item
type CreateContentInput struct {
	UserID string
	Title  string
	Link   string
	Type   domain.ContentType
	Note   string
	Tags   []string
}

// UpdateContentInput represents the input for editing a content item
type UpdateContentInput struct {
	UserID    string
	ContentID string
	Title     string
	Link      string
	Note      string
	Tags      []string
}

type ListContentInput struct {
	UserID string
	Type   domain.ContentType
	Cursor string
	Limit  int
}

type ListContentOutput struct {
	Items   []*domain.Content
	Cursor  string
	HasMore bool
}

// Create saves a new content item and queues its ingest job
func (s *ContentService) Create(ctx context.Context, input CreateContentInput) (*domain.Content, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.Create", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	content := domain.NewContent(
		s.uuidGen.NewString(),
		input.UserID,
		input.Title,
		input.Link,
		input.Type,
		input.Note,
		now,
	)

	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), content.ID, now)

	if s.txRunner != nil {
		if err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Contents().Create(ctx, content); err != nil {
				return fmt.Errorf("failed to create content: %w", err)
			}
			tags, err := repos.Contents().ReplaceTags(ctx, content.ID, input.Tags)
			if err != nil {
				return fmt.Errorf("failed to attach tags: %w", err)
			}
			content.Tags = tags
			return repos.IngestJobs().Create(ctx, job)
		}); err != nil {
			return nil, err
		}
		return content, nil
	}

	if err := s.contentRepo.Create(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	tags, err := s.contentRepo.ReplaceTags(ctx, content.ID, input.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to attach tags: %w", err)
	}
	content.Tags = tags

	if err := s.ingestJobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue ingest job: %w", err)
	}

	return content, nil
}

// GetByID retrieves one content item owned by the given user
func (s *ContentService) GetByID(ctx context.Context, userID, contentID string) (*domain.Content, error) {
	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.UserID != userID {
		return nil, domain.ErrContentNotFound
	}
	return content, nil
}

// List retrieves a page of the user's content, newest first
func (s *ContentService) List(ctx context.Context, input ListContentInput) (*ListContentOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.List", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "list",
	})
	defer span.End()

	if input.Type != "" && !domain.IsValidContentType(input.Type) {
		return nil, domain.ErrInvalidContentType
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.contentRepo.ListByUserWithCursor(ctx, input.UserID, input.Type, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListContentOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Update edits a content item and queues re-ingestion so the indexed
// chunks track the new text.
func (s *ContentService) Update(ctx context.Context, input UpdateContentInput) (*domain.Content, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.Update", telemetry.SpanAttributes{
		UserID:    input.UserID,
		ContentID: input.ContentID,
		Operation: "update",
	})
	defer span.End()

	content, err := s.GetByID(ctx, input.UserID, input.ContentID)
	if err != nil {
		return nil, err
	}

	content.Title = input.Title
	content.Link = input.Link
	content.Note = input.Note
	content.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}

	if err := s.contentRepo.Update(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to update content: %w", err)
	}

	if input.Tags != nil {
		tags, err := s.contentRepo.ReplaceTags(ctx, content.ID, input.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to replace tags: %w", err)
		}
		content.Tags = tags
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), content.ID, time.Now().UTC())
	if err := s.ingestJobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue ingest job: %w", err)
	}

	return content, nil
}

// Delete removes a content item and cascades the delete to its indexed
// chunks. A chunk cleanup failure is logged but does not resurrect the
// content record.
func (s *ContentService) Delete(ctx context.Context, userID, contentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.Delete", telemetry.SpanAttributes{
		UserID:    userID,
		ContentID: contentID,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.GetByID(ctx, userID, contentID); err != nil {
		return err
	}

	if s.chunkRemover != nil {
		if err := s.chunkRemover.Remove(ctx, contentID); err != nil {
			log.Printf("content: failed to delete chunks for %s: %v", contentID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	if err := s.contentRepo.Delete(ctx, contentID); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	return nil
}

// Share generates a share token for a content item, making it readable
// without authentication. Returns the existing token when one is set.
func (s *ContentService) Share(ctx context.Context, userID, contentID string) (string, error) {
	content, err := s.GetByID(ctx, userID, contentID)
	if err != nil {
		return "", err
	}

	if content.ShareToken != "" {
		return content.ShareToken, nil
	}

	token := s.uuidGen.NewString()
	if err := s.contentRepo.SetShareToken(ctx, contentID, token); err != nil {
		return "", fmt.Errorf("failed to set share token: %w", err)
	}

	return token, nil
}

// Unshare revokes a content item's share token
func (s *ContentService) Unshare(ctx context.Context, userID, contentID string) error {
	if _, err := s.GetByID(ctx, userID, contentID); err != nil {
		return err
	}
	return s.contentRepo.SetShareToken(ctx, contentID, "")
}

// GetShared resolves a share token to its content item
func (s *ContentService) GetShared(ctx context.Context, token string) (*domain.Content, error) {
	if token == "" {
		return nil, domain.ErrShareNotFound
	}

	content, err := s.contentRepo.GetByShareToken(ctx, token)
	if err != nil {
		if err == domain.ErrContentNotFound {
			return nil, domain.ErrShareNotFound
		}
		return nil, err
	}
	return content, nil
}
