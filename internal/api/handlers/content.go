package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recollect-labs/recollect/internal/api"
	"github.com/recollect-labs/recollect/internal/api/middleware"
	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/service"
)

type ContentService interface {
	Create(ctx context.Context, input service.CreateContentInput) (*domain.Content, error)
	GetByID(ctx context.Context, userID, contentID string) (*domain.Content, error)
	List(ctx context.Context, input service.ListContentInput) (*service.ListContentOutput, error)
	Update(ctx context.Context, input service.UpdateContentInput) (*domain.Content, error)
	Delete(ctx context.Context, userID, contentID string) error
	Share(ctx context.Context, userID, contentID string) (string, error)
	Unshare(ctx context.Context, userID, contentID string) error
	GetShared(ctx context.Context, token string) (*domain.Content, error)
}

type ContentHandler struct {
	svc ContentService
}

func NewContentHandler(svc ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type CreateContentRequest struct {
	Title string   `json:"title"`
	Link  string   `json:"link"`
	Type  string   `json:"type"`
	Note  string   `json:"note"`
	Tags  []string `json:"tags"`
}

type UpdateContentRequest struct {
	Title string    `json:"title"`
	Link  string    `json:"link"`
	Note  string    `json:"note"`
	Tags  *[]string `json:"tags"`
}

type TagResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ContentResponse struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Link       string        `json:"link,omitempty"`
	Type       string        `json:"type"`
	Note       string        `json:"note"`
	Tags       []TagResponse `json:"tags"`
	ShareToken string        `json:"share_token,omitempty"`
	CreatedAt  string        `json:"created_at"`
	UpdatedAt  string        `json:"updated_at"`
}

func contentToResponse(c *domain.Content) *ContentResponse {
	tags := make([]TagResponse, len(c.Tags))
	for i, tag := range c.Tags {
		tags[i] = TagResponse{ID: tag.ID, Title: tag.Title}
	}
	return &ContentResponse{
		ID:         c.ID,
		Title:      c.Title,
		Link:       c.Link,
		Type:       string(c.Type),
		Note:       c.Note,
		Tags:       tags,
		ShareToken: c.ShareToken,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}

	input := service.CreateContentInput{
		UserID: userID,
		Title:  req.Title,
		Link:   req.Link,
		Type:   domain.ContentType(req.Type),
		Note:   req.Note,
		Tags:   req.Tags,
	}

	content, err := h.svc.Create(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, contentToResponse(content))
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	content, err := h.svc.GetByID(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentToResponse(content))
}

type ContentListResponse struct {
	Items   []*ContentResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contentType := r.URL.Query().Get("type")
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	input := service.ListContentInput{
		UserID: userID,
		Type:   domain.ContentType(contentType),
		Cursor: cursor,
		Limit:  limit,
	}

	output, err := h.svc.List(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ContentResponse, len(output.Items))
	for i, c := range output.Items {
		responses[i] = contentToResponse(c)
	}

	api.Success(w, http.StatusOK, ContentListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	input := service.UpdateContentInput{
		UserID:    userID,
		ContentID: id,
		Title:     req.Title,
		Link:      req.Link,
		Note:      req.Note,
	}
	if req.Tags != nil {
		input.Tags = *req.Tags
	}

	content, err := h.svc.Update(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentToResponse(content))
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"message": "content deleted"})
}

type ShareResponse struct {
	ShareToken string `json:"share_token"`
}

func (h *ContentHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	token, err := h.svc.Share(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ShareResponse{ShareToken: token})
}

func (h *ContentHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Unshare(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"message": "sharing disabled"})
}

// GetShared serves a shared content item without authentication
func (h *ContentHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		api.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	content, err := h.svc.GetShared(r.Context(), token)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// share tokens are single-purpose; don't leak them back out
	resp := contentToResponse(content)
	resp.ShareToken = ""
	api.Success(w, http.StatusOK, resp)
}
