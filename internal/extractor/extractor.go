package extractor

import (
	"context"
	"net/http"
	"time"

	"github.com/recollect-labs/recollect/internal/domain"
)

// Extractor pulls plain text out of supported source links. Extraction is
// best-effort: any failure yields an empty string so ingestion can fall back
// to the item's title and note.
type Extractor struct {
	client             *http.Client
	twitterBearerToken string
	twitterAPIBase     string
	youtubeBase        string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithHTTPClient overrides the HTTP client used for fetches
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		e.client = client
	}
}

// WithTwitterBearerToken sets the token for Twitter API requests
func WithTwitterBearerToken(token string) Option {
	return func(e *Extractor) {
		e.twitterBearerToken = token
	}
}

// WithTwitterAPIBase overrides the Twitter API base URL (for testing)
func WithTwitterAPIBase(base string) Option {
	return func(e *Extractor) {
		e.twitterAPIBase = base
	}
}

// WithYouTubeBase overrides the YouTube base URL (for testing)
func WithYouTubeBase(base string) Option {
	return func(e *Extractor) {
		e.youtubeBase = base
	}
}

// New creates an Extractor with sensible defaults
func New(opts ...Option) *Extractor {
	e := &Extractor{
		client:         &http.Client{Timeout: 15 * time.Second},
		twitterAPIBase: "https://api.twitter.com",
		youtubeBase:    "https://www.youtube.com",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text behind a link for types that carry external
// content. Notes and other links have nothing to fetch.
func (e *Extractor) Extract(ctx context.Context, contentType domain.ContentType, link string) string {
	if link == "" {
		return ""
	}
	switch contentType {
	case domain.ContentTypeYoutube:
		return e.youtubeTranscript(ctx, link)
	case domain.ContentTypeTwitter:
		return e.tweetText(ctx, link)
	}
	return ""
}
