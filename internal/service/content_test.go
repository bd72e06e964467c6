package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/pagination"
)

type MockUUIDGenerator struct {
	uuids []string
	index int
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.index >= len(m.uuids) {
		return "default-uuid"
	}
	id := m.uuids[m.index]
	m.index++
	return id
}

type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Create(ctx context.Context, c *domain.Content) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContentRepository) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) GetByShareToken(ctx context.Context, token string) (*domain.Content, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) ListByUserWithCursor(ctx context.Context, userID string, contentType domain.ContentType, cursor *pagination.Cursor, limit int) (*ContentPageResult, error) {
	args := m.Called(ctx, userID, contentType, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ContentPageResult), args.Error(1)
}

func (m *MockContentRepository) Update(ctx context.Context, c *domain.Content) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContentRepository) ReplaceTags(ctx context.Context, contentID string, titles []string) ([]domain.Tag, error) {
	args := m.Called(ctx, contentID, titles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Tag), args.Error(1)
}

func (m *MockContentRepository) SetShareToken(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

type MockIngestJobRepository struct {
	mock.Mock
}

func (m *MockIngestJobRepository) Create(ctx context.Context, job *domain.IngestJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockChunkRemover struct {
	mock.Mock
}

func (m *MockChunkRemover) Remove(ctx context.Context, contentID string) error {
	args := m.Called(ctx, contentID)
	return args.Error(0)
}

func TestContentService_Create(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	mockJobs := new(MockIngestJobRepository)
	uuidGen := NewMockUUIDGenerator("content-123", "job-456")

	mockRepo.On("Create", ctx, mock.MatchedBy(func(c *domain.Content) bool {
		return c.ID == "content-123" && c.UserID == "u1" && c.Type == domain.ContentTypeYoutube
	})).Return(nil)
	mockRepo.On("ReplaceTags", ctx, "content-123", []string{"crypto"}).
		Return([]domain.Tag{{ID: "t1", Title: "crypto"}}, nil)
	mockJobs.On("Create", ctx, mock.MatchedBy(func(j *domain.IngestJob) bool {
		return j.ID == "job-456" && j.ContentID == "content-123" && j.Status == domain.IngestJobStatusPending
	})).Return(nil)

	svc := NewContentServiceWithUUIDGen(mockRepo, mockJobs, nil, uuidGen)

	content, err := svc.Create(ctx, CreateContentInput{
		UserID: "u1",
		Title:  "Solana explained",
		Link:   "https://youtube.com/watch?v=abc",
		Type:   domain.ContentTypeYoutube,
		Note:   "watch later",
		Tags:   []string{"crypto"},
	})

	require.NoError(t, err)
	assert.Equal(t, "content-123", content.ID)
	assert.Equal(t, []domain.Tag{{ID: "t1", Title: "crypto"}}, content.Tags)
	mockRepo.AssertExpectations(t)
	mockJobs.AssertExpectations(t)
}

func TestContentService_Create_InvalidNoteWithLink(t *testing.T) {
	svc := NewContentService(new(MockContentRepository), new(MockIngestJobRepository), nil)

	_, err := svc.Create(context.Background(), CreateContentInput{
		UserID: "u1",
		Title:  "My note",
		Link:   "https://example.com",
		Type:   domain.ContentTypeNotes,
	})

	assert.Equal(t, domain.ErrNoteWithLink, err)
}

func TestContentService_Create_WithTxRunner(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	mockJobs := new(MockIngestJobRepository)

	mockRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockRepo.On("ReplaceTags", ctx, mock.Anything, mock.Anything).Return([]domain.Tag{}, nil)
	mockJobs.On("Create", ctx, mock.Anything).Return(nil)

	runner := &testTxRunner{repos: &testTxRepos{contents: mockRepo, ingestJobs: mockJobs}}
	svc := NewContentServiceWithTx(mockRepo, mockJobs, nil, runner)

	_, err := svc.Create(ctx, CreateContentInput{
		UserID: "u1",
		Title:  "Title",
		Type:   domain.ContentTypeOther,
	})

	require.NoError(t, err)
	assert.True(t, runner.called)
}

func TestContentService_GetByID_WrongOwner(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	content := testContent("c1", "Title", "note")
	mockRepo.On("GetByID", ctx, "c1").Return(content, nil)

	svc := NewContentService(mockRepo, new(MockIngestJobRepository), nil)

	_, err := svc.GetByID(ctx, "someone-else", "c1")

	assert.Equal(t, domain.ErrContentNotFound, err)
}

func TestContentService_Update_QueuesReingest(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	mockJobs := new(MockIngestJobRepository)
	uuidGen := NewMockUUIDGenerator("job-789")

	existing := testContent("c1", "Old title", "old note")
	mockRepo.On("GetByID", ctx, "c1").Return(existing, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(c *domain.Content) bool {
		return c.ID == "c1" && c.Title == "New title" && c.Note == "new note"
	})).Return(nil)
	mockJobs.On("Create", ctx, mock.MatchedBy(func(j *domain.IngestJob) bool {
		return j.ID == "job-789" && j.ContentID == "c1"
	})).Return(nil)

	svc := NewContentServiceWithUUIDGen(mockRepo, mockJobs, nil, uuidGen)

	updated, err := svc.Update(ctx, UpdateContentInput{
		UserID:    "u1",
		ContentID: "c1",
		Title:     "New title",
		Link:      existing.Link,
		Note:      "new note",
	})

	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	mockJobs.AssertExpectations(t)
}

func TestContentService_Delete_CascadesToChunks(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	mockRemover := new(MockChunkRemover)

	content := testContent("c1", "Title", "note")
	mockRepo.On("GetByID", ctx, "c1").Return(content, nil)
	mockRemover.On("Remove", ctx, "c1").Return(nil)
	mockRepo.On("Delete", ctx, "c1").Return(nil)

	svc := NewContentService(mockRepo, new(MockIngestJobRepository), mockRemover)

	err := svc.Delete(ctx, "u1", "c1")

	require.NoError(t, err)
	mockRemover.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestContentService_Delete_ChunkFailureDoesNotBlockDelete(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	mockRemover := new(MockChunkRemover)

	content := testContent("c1", "Title", "note")
	mockRepo.On("GetByID", ctx, "c1").Return(content, nil)
	mockRemover.On("Remove", ctx, "c1").Return(errors.New("index down"))
	mockRepo.On("Delete", ctx, "c1").Return(nil)

	svc := NewContentService(mockRepo, new(MockIngestJobRepository), mockRemover)

	err := svc.Delete(ctx, "u1", "c1")

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestContentService_Share(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	uuidGen := NewMockUUIDGenerator("share-token-1")

	content := testContent("c1", "Title", "note")
	mockRepo.On("GetByID", ctx, "c1").Return(content, nil)
	mockRepo.On("SetShareToken", ctx, "c1", "share-token-1").Return(nil)

	svc := NewContentServiceWithUUIDGen(mockRepo, new(MockIngestJobRepository), nil, uuidGen)

	token, err := svc.Share(ctx, "u1", "c1")

	require.NoError(t, err)
	assert.Equal(t, "share-token-1", token)
}

func TestContentService_Share_ExistingTokenReused(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)

	content := testContent("c1", "Title", "note")
	content.ShareToken = "existing-token"
	mockRepo.On("GetByID", ctx, "c1").Return(content, nil)

	svc := NewContentService(mockRepo, new(MockIngestJobRepository), nil)

	token, err := svc.Share(ctx, "u1", "c1")

	require.NoError(t, err)
	assert.Equal(t, "existing-token", token)
	mockRepo.AssertNotCalled(t, "SetShareToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestContentService_GetShared_NotFound(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)
	mockRepo.On("GetByShareToken", ctx, "bogus").Return(nil, domain.ErrContentNotFound)

	svc := NewContentService(mockRepo, new(MockIngestJobRepository), nil)

	_, err := svc.GetShared(ctx, "bogus")

	assert.Equal(t, domain.ErrShareNotFound, err)
}

func TestContentService_List(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContentRepository)

	items := []*domain.Content{testContent("c1", "A", ""), testContent("c2", "B", "")}
	mockRepo.On("ListByUserWithCursor", ctx, "u1", domain.ContentType(""), (*pagination.Cursor)(nil), 20).
		Return(&ContentPageResult{Items: items, NextCursor: "", HasMore: false}, nil)

	svc := NewContentService(mockRepo, new(MockIngestJobRepository), nil)

	out, err := svc.List(ctx, ListContentInput{UserID: "u1"})

	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.False(t, out.HasMore)
}

func TestContentService_List_InvalidType(t *testing.T) {
	svc := NewContentService(new(MockContentRepository), new(MockIngestJobRepository), nil)

	_, err := svc.List(context.Background(), ListContentInput{UserID: "u1", Type: "podcast"})

	assert.Equal(t, domain.ErrInvalidContentType, err)
}
