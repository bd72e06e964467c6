package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/recollect-labs/recollect/internal/api"
	"github.com/recollect-labs/recollect/internal/api/middleware"
	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/service"
)

type SearchService interface {
	SearchAI(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchAIRequest struct {
	Query   string                  `json:"query"`
	Filter  string                  `json:"filter"`
	History []domain.HistoryMessage `json:"history"`
}

type SearchAIResponse struct {
	Answer         string               `json:"answer"`
	OptimizedQuery string               `json:"optimizedQuery"`
	Sources        []domain.SearchMatch `json:"sources"`
	PromptMessages []domain.Message     `json:"promptMessages"`
}

// SearchAI answers a conversational question over the caller's indexed content
func (h *SearchHandler) SearchAI(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.SearchInput{
		UserID:  userID,
		Query:   req.Query,
		Filter:  req.Filter,
		History: req.History,
	}

	output, err := h.svc.SearchAI(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchAIResponse{
		Answer:         output.Answer,
		OptimizedQuery: output.OptimizedQuery,
		Sources:        output.Sources,
		PromptMessages: output.PromptMessages,
	})
}
