package domain

import (
	"fmt"
	"time"
)

// ContentType represents the kind of source a content item points at
type ContentType string

const (
	ContentTypeYoutube ContentType = "youtube"
	ContentTypeTwitter ContentType = "twitter"
	ContentTypeNotes   ContentType = "notes"
	ContentTypeOther   ContentType = "other"
)

// FilterAll matches every content type in a search
const FilterAll = "all"

// Tag is a reusable label shared across content items
type Tag struct {
	ID    string
	Title string
}

// Content represents a saved item in a user's second brain
type Content struct {
	ID         string
	UserID     string
	Title      string
	Link       string
	Type       ContentType
	Note       string
	Tags       []Tag
	ShareToken string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewContent creates a new Content instance
func NewContent(
	id, userID, title, link string,
	contentType ContentType,
	note string,
	createdAt time.Time,
) *Content {
	return &Content{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Link:      link,
		Type:      contentType,
		Note:      note,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateContent validates a Content instance
func ValidateContent(c *Content) error {
	if c == nil {
		return fmt.Errorf("content cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("content ID is required")
	}

	if c.UserID == "" {
		return fmt.Errorf("content UserID is required")
	}

	if c.Title == "" {
		return fmt.Errorf("content Title is required")
	}

	if !IsValidContentType(c.Type) {
		return ErrInvalidContentType
	}

	if c.Type == ContentTypeNotes && c.Link != "" {
		return ErrNoteWithLink
	}

	return nil
}

// IsValidContentType checks if a ContentType is valid
func IsValidContentType(t ContentType) bool {
	switch t {
	case ContentTypeYoutube, ContentTypeTwitter, ContentTypeNotes, ContentTypeOther:
		return true
	}
	return false
}

// IsValidSearchFilter reports whether a filter value is "all" or a known type
func IsValidSearchFilter(filter string) bool {
	if filter == FilterAll {
		return true
	}
	return IsValidContentType(ContentType(filter))
}

// EmbeddingText concatenates the fields that feed the ingestion pipeline:
// title, note, and whatever was extracted from the link.
func (c *Content) EmbeddingText(extracted string) string {
	return c.Title + "\n\n" + c.Note + "\n\n" + extracted
}
