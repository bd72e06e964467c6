package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recollect-labs/recollect/internal/api/middleware"
	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/service"
)

type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) Create(ctx context.Context, input service.CreateContentInput) (*domain.Content, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentService) GetByID(ctx context.Context, userID, contentID string) (*domain.Content, error) {
	args := m.Called(ctx, userID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentService) List(ctx context.Context, input service.ListContentInput) (*service.ListContentOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListContentOutput), args.Error(1)
}

func (m *MockContentService) Update(ctx context.Context, input service.UpdateContentInput) (*domain.Content, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentService) Delete(ctx context.Context, userID, contentID string) error {
	args := m.Called(ctx, userID, contentID)
	return args.Error(0)
}

func (m *MockContentService) Share(ctx context.Context, userID, contentID string) (string, error) {
	args := m.Called(ctx, userID, contentID)
	return args.String(0), args.Error(1)
}

func (m *MockContentService) Unshare(ctx context.Context, userID, contentID string) error {
	args := m.Called(ctx, userID, contentID)
	return args.Error(0)
}

func (m *MockContentService) GetShared(ctx context.Context, token string) (*domain.Content, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func newTestContent() *domain.Content {
	now := time.Now().UTC()
	return &domain.Content{
		ID:        "c-123",
		UserID:    "user-456",
		Title:     "Go Talk",
		Link:      "https://youtube.com/watch?v=abc",
		Type:      domain.ContentTypeYoutube,
		Note:      "watch later",
		Tags:      []domain.Tag{{ID: "t-1", Title: "go"}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func requestWithUserID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-456")
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestContentHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	expected := newTestContent()
	mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(input service.CreateContentInput) bool {
		return input.UserID == "user-456" && input.Title == "Go Talk" && len(input.Tags) == 1
	})).Return(expected, nil)

	body := `{"title":"Go Talk","link":"https://youtube.com/watch?v=abc","type":"youtube","note":"watch later","tags":["go"]}`
	req := requestWithUserID(http.MethodPost, "/content", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data ContentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "c-123", resp.Data.ID)
	assert.Equal(t, "youtube", resp.Data.Type)
	require.Len(t, resp.Data.Tags, 1)
	assert.Equal(t, "go", resp.Data.Tags[0].Title)
	mockSvc.AssertExpectations(t)
}

func TestContentHandler_Create_MissingTitle(t *testing.T) {
	handler := NewContentHandler(new(MockContentService))

	body := `{"type":"notes","note":"text"}`
	req := requestWithUserID(http.MethodPost, "/content", []byte(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentHandler_Create_Unauthorized(t *testing.T) {
	handler := NewContentHandler(new(MockContentService))

	req := httptest.NewRequest(http.MethodPost, "/content", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContentHandler_Create_ValidationError(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrNoteWithLink)

	body := `{"title":"A note","type":"notes","link":"https://example.com"}`
	req := requestWithUserID(http.MethodPost, "/content", []byte(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	expected := newTestContent()
	mockSvc.On("GetByID", mock.Anything, "user-456", "c-123").Return(expected, nil)

	req := withURLParam(requestWithUserID(http.MethodGet, "/content/c-123", nil), "id", "c-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContentHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "user-456", "missing").Return(nil, domain.ErrContentNotFound)

	req := withURLParam(requestWithUserID(http.MethodGet, "/content/missing", nil), "id", "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentHandler_List_Success(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	mockSvc.On("List", mock.Anything, mock.MatchedBy(func(input service.ListContentInput) bool {
		return input.UserID == "user-456" && input.Type == domain.ContentTypeYoutube && input.Limit == 10
	})).Return(&service.ListContentOutput{
		Items:   []*domain.Content{newTestContent()},
		Cursor:  "next-cursor",
		HasMore: true,
	}, nil)

	req := requestWithUserID(http.MethodGet, "/content?type=youtube&limit=10", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ContentListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Items, 1)
	assert.True(t, resp.Data.HasMore)
	assert.Equal(t, "next-cursor", resp.Data.Cursor)
}

func TestContentHandler_Update_Success(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	expected := newTestContent()
	expected.Title = "Updated"
	mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(input service.UpdateContentInput) bool {
		return input.ContentID == "c-123" && input.Title == "Updated" && input.Tags == nil
	})).Return(expected, nil)

	body := `{"title":"Updated","note":"new note"}`
	req := withURLParam(requestWithUserID(http.MethodPut, "/content/c-123", []byte(body)), "id", "c-123")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestContentHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "user-456", "c-123").Return(nil)

	req := withURLParam(requestWithUserID(http.MethodDelete, "/content/c-123", nil), "id", "c-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestContentHandler_Share_Success(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	mockSvc.On("Share", mock.Anything, "user-456", "c-123").Return("share-token-1", nil)

	req := withURLParam(requestWithUserID(http.MethodPost, "/content/c-123/share", nil), "id", "c-123")
	w := httptest.NewRecorder()

	handler.Share(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ShareResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "share-token-1", resp.Data.ShareToken)
}

func TestContentHandler_GetShared_HidesToken(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	shared := newTestContent()
	shared.ShareToken = "share-token-1"
	mockSvc.On("GetShared", mock.Anything, "share-token-1").Return(shared, nil)

	req := httptest.NewRequest(http.MethodGet, "/share/share-token-1", nil)
	req = withURLParam(req, "token", "share-token-1")
	w := httptest.NewRecorder()

	handler.GetShared(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ContentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data.ShareToken)
}

func TestContentHandler_GetShared_NotFound(t *testing.T) {
	mockSvc := new(MockContentService)
	handler := NewContentHandler(mockSvc)

	mockSvc.On("GetShared", mock.Anything, "bogus").Return(nil, domain.ErrShareNotFound)

	req := httptest.NewRequest(http.MethodGet, "/share/bogus", nil)
	req = withURLParam(req, "token", "bogus")
	w := httptest.NewRecorder()

	handler.GetShared(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
